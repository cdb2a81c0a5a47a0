package automodes

import (
	"github.com/xero1425/xerobot/action"
	"github.com/xero1425/xerobot/auto"
	"github.com/xero1425/xerobot/motor"
)

// Routine names, in selector order.
const (
	ScoreAndLeave = "score and leave"
	Leave         = "leave"
	Pickup        = "pickup"
	DoNothing     = "do nothing"
	PitCheck      = "pit check"
)

// Builders returns the autonomous routines in selector order.
func (t *Tree) Builders() []auto.Builder {
	return []auto.Builder{
		{Name: ScoreAndLeave, Build: t.scoreAndLeave},
		{Name: Leave, Build: t.leave},
		{Name: Pickup, Build: t.pickup},
		{Name: DoNothing, Build: func(env *action.Env) (*auto.Mode, error) {
			return auto.NewMode(env, DoNothing), nil
		}},
	}
}

// TestMode returns the routine run in test mode. It exercises every
// mechanism once.
func (t *Tree) TestMode() auto.Builder {
	return auto.Builder{Name: PitCheck, Build: t.pitCheck}
}

// NewController returns an auto controller over every routine.
func (t *Tree) NewController(env *action.Env, opts ...auto.Option) *auto.Controller {
	opts = append([]auto.Option{auto.WithTestMode(t.TestMode())}, opts...)
	return auto.NewController(env, t.Builders(), opts...)
}

func dispatch(env *action.Env, m *motor.Motor, a action.Action) *action.Dispatch {
	return action.NewDispatch(env, m, a, true)
}

// scoreAndLeave raises the arm, drops the game piece, then stows and
// drives out of the starting zone at the same time.
func (t *Tree) scoreAndLeave(env *action.Env) (*auto.Mode, error) {
	arm, err := gotos(t.Arm, "score", "stow")
	if err != nil {
		return nil, err
	}
	grab, err := gotos(t.Grabber, "open", "closed")
	if err != nil {
		return nil, err
	}
	drive, err := gotos(t.DriveBase, "leave")
	if err != nil {
		return nil, err
	}

	return auto.NewMode(env, ScoreAndLeave,
		dispatch(env, t.Arm, arm[0]),
		dispatch(env, t.Grabber, grab[0]),
		action.NewParallel(env, action.All,
			dispatch(env, t.Arm, arm[1]),
			dispatch(env, t.Grabber, grab[1]),
			dispatch(env, t.DriveBase, drive[0]),
		),
	), nil
}

func (t *Tree) leave(env *action.Env) (*auto.Mode, error) {
	drive, err := gotos(t.DriveBase, "leave")
	if err != nil {
		return nil, err
	}
	return auto.NewMode(env, Leave, dispatch(env, t.DriveBase, drive[0])), nil
}

// pickup lowers the arm and runs the grabber closed until it reaches the
// piece or the timeout, whichever comes first. The arm is then stowed
// without waiting while the robot backs up to the grid.
func (t *Tree) pickup(env *action.Env) (*auto.Mode, error) {
	timeout, err := t.seconds("auto.pickup_timeout")
	if err != nil {
		return nil, err
	}
	arm, err := gotos(t.Arm, "pickup", "stow")
	if err != nil {
		return nil, err
	}
	grab, err := gotos(t.Grabber, "open", "closed")
	if err != nil {
		return nil, err
	}
	drive, err := gotos(t.DriveBase, "grid")
	if err != nil {
		return nil, err
	}

	return auto.NewMode(env, Pickup,
		action.NewParallel(env, action.All,
			dispatch(env, t.Arm, arm[0]),
			dispatch(env, t.Grabber, grab[0]),
		),
		action.NewParallel(env, action.First,
			dispatch(env, t.Grabber, grab[1]),
			action.NewDelay(env, timeout),
		),
		action.NewDispatch(env, t.Arm, arm[1], false),
		dispatch(env, t.DriveBase, drive[0]),
	), nil
}

func (t *Tree) pitCheck(env *action.Env) (*auto.Mode, error) {
	power, err := t.settings.Double("auto.pit_check_power")
	if err != nil {
		return nil, err
	}
	d, err := t.seconds("auto.pit_check_time")
	if err != nil {
		return nil, err
	}
	arm, err := gotos(t.Arm, "pickup", "stow")
	if err != nil {
		return nil, err
	}
	grab, err := gotos(t.Grabber, "open", "closed")
	if err != nil {
		return nil, err
	}

	return auto.NewMode(env, PitCheck,
		dispatch(env, t.DriveBase, motor.NewPower(t.DriveBase, power, d)),
		dispatch(env, t.DriveBase, motor.NewPower(t.DriveBase, -power, d)),
		dispatch(env, t.Arm, arm[0]),
		dispatch(env, t.Arm, arm[1]),
		dispatch(env, t.Grabber, grab[0]),
		dispatch(env, t.Grabber, grab[1]),
	), nil
}
