package automodes

import (
	"log/slog"
	"time"

	"github.com/xero1425/xerobot/action"
	"github.com/xero1425/xerobot/motor"
)

// Driver stands in for the drive team during teleop. Whenever the
// manipulator is idle it starts the next pickup and score cycle, and it
// pulses the drivebase between cycles. While a cycle runs it keeps trying
// to jog the arm by hand, which the manipulator refuses.
type Driver struct {
	tree   *Tree
	env    *action.Env
	logger *slog.Logger

	power float64
	pulse time.Duration

	cycles int
	jogs   int
}

// NewDriver creates a driver for t. The drive pulse comes from the
// "teleop.drive_power" and "teleop.drive_time" settings.
func NewDriver(env *action.Env, t *Tree) (*Driver, error) {
	power, err := t.settings.Double("teleop.drive_power")
	if err != nil {
		return nil, err
	}
	pulse, err := t.seconds("teleop.drive_time")
	if err != nil {
		return nil, err
	}
	return &Driver{
		tree:   t,
		env:    env,
		logger: env.Logger.With("component", "driver"),
		power:  power,
		pulse:  pulse,
	}, nil
}

// Cycles returns the number of cycles started.
func (d *Driver) Cycles() int {
	return d.cycles
}

// RejectedJogs returns how many hand jogs the manipulator refused.
func (d *Driver) RejectedJogs() int {
	return d.jogs
}

// Run is called once per teleop tick.
func (d *Driver) Run() {
	t := d.tree
	if t.Manipulator.IsBusy() {
		d.jog()
		return
	}

	cycle, err := d.cycle()
	if err != nil {
		d.logger.Error("cannot build teleop cycle", "error", err)
		return
	}
	if err := t.Manipulator.SetAction(cycle, false); err != nil {
		d.logger.Warn("teleop cycle rejected", "error", err)
		return
	}
	d.cycles++

	if !t.DriveBase.IsBusy() {
		p := d.power
		if d.cycles%2 == 0 {
			p = -p
		}
		if err := t.DriveBase.SetAction(motor.NewPower(t.DriveBase, p, d.pulse), false); err != nil {
			d.logger.Warn("drive pulse rejected", "error", err)
		}
	}
}

// jog tries to nudge the arm. The manipulator's cycle owns the arm, so the
// request is expected to fail.
func (d *Driver) jog() {
	arm := d.tree.Arm
	if err := arm.SetAction(motor.NewGoto(arm, arm.Position()+5), false); err != nil {
		d.jogs++
	}
}

// Cancel stops the cycle in progress and lets the defaults take over.
func (d *Driver) Cancel() {
	d.tree.Manipulator.CancelAction()
	d.tree.DriveBase.CancelAction()
}

// cycle picks up a piece, scores it and stows the arm.
func (d *Driver) cycle() (action.Action, error) {
	t := d.tree
	arm, err := gotos(t.Arm, "pickup", "score", "stow")
	if err != nil {
		return nil, err
	}
	grab, err := gotos(t.Grabber, "open", "closed", "open", "closed")
	if err != nil {
		return nil, err
	}

	return action.NewSequence(d.env, "teleop cycle",
		action.NewParallel(d.env, action.All,
			dispatch(d.env, t.Arm, arm[0]),
			dispatch(d.env, t.Grabber, grab[0]),
		),
		dispatch(d.env, t.Grabber, grab[1]),
		dispatch(d.env, t.Arm, arm[1]),
		dispatch(d.env, t.Grabber, grab[2]),
		action.NewParallel(d.env, action.All,
			dispatch(d.env, t.Arm, arm[2]),
			dispatch(d.env, t.Grabber, grab[3]),
		),
	), nil
}
