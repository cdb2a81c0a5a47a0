package action

import (
	"strings"
)

// Owner is the side of a subsystem that Dispatch needs. It is satisfied by
// *subsystem.Subsystem.
type Owner interface {
	Name() string
	SetAction(a Action, parentBusyOK bool) error
	Action() Action
}

// Dispatch assigns its child to an owner subsystem. A blocking dispatch stays
// running until the child finishes; a non-blocking one finishes as soon as
// the child has been handed over.
type Dispatch struct {
	Base
	owner Owner
	child Action
	block bool
}

// NewDispatch creates a dispatch of child to owner.
func NewDispatch(env *Env, owner Owner, child Action, block bool) *Dispatch {
	return &Dispatch{
		Base:  NewBase(env, "dispatch"),
		owner: owner,
		child: child,
		block: block,
	}
}

// Owner returns the target subsystem.
func (d *Dispatch) Owner() Owner {
	return d.owner
}

// Blocking reports whether the dispatch waits for its child.
func (d *Dispatch) Blocking() bool {
	return d.block
}

// Children returns the single dispatched child.
func (d *Dispatch) Children() []Action {
	return []Action{d.child}
}

// Start hands the child to the owner. The dispatch always runs inside a
// tree that was already accepted by a busy check, so the ancestor check is
// bypassed here. A rejected assignment is logged and the dispatch finishes
// so the surrounding tree keeps moving.
func (d *Dispatch) Start() error {
	if err := d.Base.Start(); err != nil {
		return err
	}
	if err := d.owner.SetAction(d.child, true); err != nil {
		d.Logger().Error("dispatch rejected", "subsystem", d.owner.Name(), "error", err)
		d.SetDone()
		return nil
	}
	if !d.block || d.child.IsDone() {
		d.SetDone()
	}
	return nil
}

// Run finishes the dispatch once the child is done.
func (d *Dispatch) Run() error {
	if d.IsDone() || !d.IsStarted() {
		return nil
	}
	if d.child.IsDone() {
		d.SetDone()
	}
	return nil
}

// Cancel cancels the child and clears it from the owner, if the owner is
// still running it.
func (d *Dispatch) Cancel() {
	if d.IsDone() {
		return
	}
	d.child.Cancel()
	if d.owner.Action() == d.child {
		if err := d.owner.SetAction(nil, true); err != nil {
			d.Logger().Warn("could not clear dispatched action", "subsystem", d.owner.Name(), "error", err)
		}
	}
	d.Base.Cancel()
}

// Describe renders the dispatch and its child.
func (d *Dispatch) Describe(indent int) string {
	var sb strings.Builder
	sb.WriteString(Indent(indent))
	sb.WriteString("Dispatch ")
	sb.WriteString(d.owner.Name())
	if d.block {
		sb.WriteString(" (block)")
	}
	describeChildren(&sb, []Action{d.child}, indent+2)
	return sb.String()
}
