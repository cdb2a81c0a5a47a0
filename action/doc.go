// Package action provides the cooperative unit of robot behavior and the
// combinators used to compose it.
//
// # Lifecycle
//
// Every Action follows the same lifecycle:
//
//	created -> Start() -> Run()* -> done
//
// Start is called exactly once when the action is handed to a subsystem or
// entered by a parent group. Run is called once per robot loop tick until the
// action reports IsDone. Cancel may be called by the owner at any time before
// the action is done; it forces done and canceled and must stop any effect the
// action has on hardware before returning.
//
// Actions never block. An action that needs to wait polls its condition in
// Run and returns without finishing. A clock.Timer covers the common case.
//
// # Composition
//
// Groups are a closed set of combinators:
//
//   - Sequence runs children one at a time in append order.
//   - Parallel runs all children every tick and finishes under an All or
//     First policy, canceling whatever is still running when it finishes.
//   - Dispatch hands a child to a subsystem and optionally waits for it.
//
// Leaves are open ended. A leaf embeds Base and implements Run and Describe:
//
//	type Intake struct {
//		action.Base
//		roller *motor.Subsystem
//	}
//
//	func (a *Intake) Start() error {
//		if err := a.Base.Start(); err != nil {
//			return err
//		}
//		a.roller.SetPower(0.8)
//		return nil
//	}
//
// Children that finish inside their own Start are expected and handled:
// a Sequence immediately moves on to the next child, and a Parallel with
// the First policy finishes during its own Start.
//
// # Timeouts
//
// There is no timeout built into Action. Race the real action against a
// Delay in a Parallel with the First policy; the loser is canceled.
//
//	action.NewParallel(env, action.First,
//		drive,
//		action.NewDelay(env, 3*time.Second),
//	)
package action
