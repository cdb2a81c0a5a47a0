package motor

import (
	"errors"
	"fmt"
	"time"

	"github.com/xero1425/xerobot/action"
	"github.com/xero1425/xerobot/clock"
)

// ErrOutOfRange is returned when a target lies outside the soft limits.
var ErrOutOfRange = errors.New("target out of range")

// GotoAction drives the mechanism to a position and finishes there.
type GotoAction struct {
	action.Base
	motor  *Motor
	label  string
	target float64
}

// NewGoto creates a move to an explicit position.
func NewGoto(m *Motor, target float64) *GotoAction {
	return &GotoAction{
		Base:   action.NewBase(m.Env(), "goto"),
		motor:  m,
		label:  fmt.Sprintf("%.2f", target),
		target: target,
	}
}

// NewGotoNamed creates a move to a position named in the settings. A
// missing or malformed setting is returned to the caller.
func NewGotoNamed(m *Motor, name string) (*GotoAction, error) {
	target, err := m.NamedPosition(name)
	if err != nil {
		return nil, fmt.Errorf("goto %s %q: %w", m.Name(), name, err)
	}
	a := NewGoto(m, target)
	a.label = fmt.Sprintf("%s (%.2f)", name, target)
	return a, nil
}

// Target returns the destination.
func (a *GotoAction) Target() float64 {
	return a.target
}

// Validate checks the target is reachable.
func (a *GotoAction) Validate() error {
	if !a.motor.InRange(a.target) {
		return fmt.Errorf("goto %s %s: %w", a.motor.Name(), a.label, ErrOutOfRange)
	}
	return nil
}

// Start finishes at once when the mechanism is already there.
func (a *GotoAction) Start() error {
	if err := a.Base.Start(); err != nil {
		return err
	}
	if err := a.Validate(); err != nil {
		return err
	}
	if a.motor.drive(a.target) {
		a.SetDone()
	}
	return nil
}

// Run drives toward the target.
func (a *GotoAction) Run() error {
	if a.IsDone() {
		return nil
	}
	if a.motor.drive(a.target) {
		a.SetDone()
	}
	return nil
}

// Cancel stops the mechanism where it is.
func (a *GotoAction) Cancel() {
	if a.IsDone() {
		return
	}
	a.motor.SetPower(0)
	a.Base.Cancel()
}

// Describe returns "Goto <motor> <target>".
func (a *GotoAction) Describe(indent int) string {
	return fmt.Sprintf("%sGoto %s %s", action.Indent(indent), a.motor.Name(), a.label)
}

// PowerAction applies a fixed output, for a duration or until canceled.
type PowerAction struct {
	action.Base
	motor *Motor
	power float64
	timer *clock.Timer
}

// NewPower creates an open loop action. A zero duration runs until canceled.
func NewPower(m *Motor, power float64, d time.Duration) *PowerAction {
	a := &PowerAction{
		Base:  action.NewBase(m.Env(), "power"),
		motor: m,
		power: power,
	}
	if d > 0 {
		a.timer = clock.NewTimer(m.Env().Clock, d)
	}
	return a
}

// Start applies the output.
func (a *PowerAction) Start() error {
	if err := a.Base.Start(); err != nil {
		return err
	}
	a.motor.SetPower(a.power)
	if a.timer != nil {
		a.timer.Start()
	}
	return nil
}

// Run holds the output and stops when the timer expires.
func (a *PowerAction) Run() error {
	if a.IsDone() {
		return nil
	}
	if a.timer != nil && a.timer.Expired() {
		a.motor.SetPower(0)
		a.SetDone()
		return nil
	}
	a.motor.SetPower(a.power)
	return nil
}

// Cancel stops the mechanism.
func (a *PowerAction) Cancel() {
	if a.IsDone() {
		return
	}
	a.motor.SetPower(0)
	a.Base.Cancel()
}

// Describe returns "Power <motor> <power>".
func (a *PowerAction) Describe(indent int) string {
	s := fmt.Sprintf("%sPower %s %.2f", action.Indent(indent), a.motor.Name(), a.power)
	if a.timer != nil {
		s += fmt.Sprintf(" for %.2fs", a.timer.Duration().Seconds())
	}
	return s
}

// HoldAction keeps the mechanism where it was when the action started. It
// never finishes and is meant to be a default action.
type HoldAction struct {
	action.Base
	motor  *Motor
	target float64
}

// NewHold creates a hold action.
func NewHold(m *Motor) *HoldAction {
	return &HoldAction{Base: action.NewBase(m.Env(), "hold"), motor: m}
}

// Start latches the current position.
func (a *HoldAction) Start() error {
	if err := a.Base.Start(); err != nil {
		return err
	}
	a.target = a.motor.Position()
	a.motor.SetPower(0)
	return nil
}

// Run corrects any drift.
func (a *HoldAction) Run() error {
	if a.IsDone() {
		return nil
	}
	a.motor.drive(a.target)
	return nil
}

// Cancel stops the mechanism.
func (a *HoldAction) Cancel() {
	if a.IsDone() {
		return
	}
	a.motor.SetPower(0)
	a.Base.Cancel()
}

// Describe returns "Hold <motor>".
func (a *HoldAction) Describe(indent int) string {
	return fmt.Sprintf("%sHold %s", action.Indent(indent), a.motor.Name())
}
