package action

import (
	"fmt"
	"time"

	"github.com/xero1425/xerobot/clock"
)

// Delay finishes after a fixed amount of robot time.
type Delay struct {
	Base
	timer *clock.Timer
}

// NewDelay creates a delay of d.
func NewDelay(env *Env, d time.Duration) *Delay {
	return &Delay{
		Base:  NewBase(env, "delay"),
		timer: clock.NewTimer(env.Clock, d),
	}
}

// Start arms the timer. A non-positive delay finishes immediately.
func (a *Delay) Start() error {
	if err := a.Base.Start(); err != nil {
		return err
	}
	a.timer.Start()
	if a.timer.Duration() <= 0 {
		a.SetDone()
	}
	return nil
}

// Run finishes once the timer expires.
func (a *Delay) Run() error {
	if a.IsDone() {
		return nil
	}
	if a.timer.Expired() {
		a.SetDone()
	}
	return nil
}

// Describe returns "Delay <seconds>".
func (a *Delay) Describe(indent int) string {
	return fmt.Sprintf("%sDelay %.2fs", Indent(indent), a.timer.Duration().Seconds())
}

// Func calls a function during Start and finishes immediately. It is the
// usual way to flip a flag or set a setpoint as one step of a sequence.
type Func struct {
	Base
	desc string
	fn   func() error
}

// NewFunc creates an instantaneous action.
func NewFunc(env *Env, desc string, fn func() error) *Func {
	return &Func{
		Base: NewBase(env, "func"),
		desc: desc,
		fn:   fn,
	}
}

// Start calls the function and finishes, returning its error.
func (a *Func) Start() error {
	if err := a.Base.Start(); err != nil {
		return err
	}
	a.SetDone()
	if a.fn == nil {
		return nil
	}
	if err := a.fn(); err != nil {
		return fmt.Errorf("%s: %w", a.desc, err)
	}
	return nil
}

// Run does nothing; a Func is always done after Start.
func (a *Func) Run() error {
	return nil
}

// Describe returns "Func <desc>".
func (a *Func) Describe(indent int) string {
	return Indent(indent) + "Func " + a.desc
}

// WaitFor polls a condition every tick and finishes when it holds.
type WaitFor struct {
	Base
	desc string
	cond func() bool
}

// NewWaitFor creates a polling wait.
func NewWaitFor(env *Env, desc string, cond func() bool) *WaitFor {
	return &WaitFor{
		Base: NewBase(env, "wait"),
		desc: desc,
		cond: cond,
	}
}

// Start finishes at once if the condition already holds.
func (a *WaitFor) Start() error {
	if err := a.Base.Start(); err != nil {
		return err
	}
	if a.cond() {
		a.SetDone()
	}
	return nil
}

// Run finishes once the condition holds.
func (a *WaitFor) Run() error {
	if a.IsDone() {
		return nil
	}
	if a.cond() {
		a.SetDone()
	}
	return nil
}

// Describe returns "WaitFor <desc>".
func (a *WaitFor) Describe(indent int) string {
	return Indent(indent) + "WaitFor " + a.desc
}
