// Package subsystem implements the hardware ownership tree.
//
// A Subsystem is the unit of exclusive access to robot hardware. It holds at
// most one active action plus an optional default action that runs whenever
// nothing else is assigned. Subsystems form a rooted tree; an action may be
// assigned to a subsystem only while none of its ancestors is busy, unless
// the caller is itself the tree orchestrating the assignment and passes
// parentBusyOK.
//
// # Per tick
//
// The robot loop calls, once per period:
//
//	root.ComputeState() // children first, then the parent
//	controller.Run()    // auto or teleop controller
//	root.Run()          // parent first, then the children
//
// Sensing runs bottom up so a parent sees fresh child state. Control runs
// top down so assignments a parent makes this tick reach its children before
// they act.
//
// # Action slot
//
// Each subsystem is in one of three states: idle, running an assigned
// action, or running its default action.
//
//	SetAction(a)       any       -> assigned (descendants hard-stopped)
//	action finishes    assigned  -> idle; default resumes on the next tick
//	Run with no action idle      -> default
//	CancelAction()     any       -> default, started immediately
//
// When an assigned action finishes inside its own Start, the default
// resumes on the very next Run. A default that finishes is not restarted
// until something else is assigned, so an instantaneous default cannot spin.
//
// # Failure containment
//
// Errors and panics raised by an action's Start or Run, or by a subsystem's
// state computation, stop at the subsystem. They are logged with the
// subsystem name, action description and stack, the action is canceled and
// cleared, and the loop carries on with every other subsystem.
package subsystem
