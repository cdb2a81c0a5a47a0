package action

import (
	"fmt"
	"strings"
)

// Policy decides when a Parallel is finished.
type Policy int

const (
	// All finishes when every child is done.
	All Policy = iota
	// First finishes as soon as any child is done.
	First
)

// String returns a human-readable representation of the Policy
func (p Policy) String() string {
	switch p {
	case All:
		return "all"
	case First:
		return "first"
	default:
		return "unknown"
	}
}

// Parallel advances all of its children every tick, in append order.
// When it finishes, any child still running is canceled, which is what
// makes a First parallel usable as a race or a timeout.
type Parallel struct {
	Base
	policy   Policy
	children []Action
	started  int // children whose Start has been called this execution, including a failed one
}

// NewParallel creates a parallel group with the given completion policy.
func NewParallel(env *Env, policy Policy, children ...Action) *Parallel {
	return &Parallel{
		Base:     NewBase(env, "parallel"),
		policy:   policy,
		children: append([]Action(nil), children...),
	}
}

// Policy returns the completion policy.
func (p *Parallel) Policy() Policy {
	return p.policy
}

// Add appends children. It fails once the group has started.
func (p *Parallel) Add(children ...Action) error {
	if p.IsStarted() {
		return fmt.Errorf("parallel: %w", ErrGroupStarted)
	}
	p.children = append(p.children, children...)
	return nil
}

// Children returns the children in append order.
func (p *Parallel) Children() []Action {
	return append([]Action(nil), p.children...)
}

// Start starts every child, then finishes immediately if the policy is
// already satisfied.
func (p *Parallel) Start() error {
	if err := p.Base.Start(); err != nil {
		return err
	}
	p.started = 0
	for i, child := range p.children {
		// A child that fails part way through Start may already own running
		// children of its own, so it is canceled along with the others.
		p.started = i + 1
		if err := child.Start(); err != nil {
			return fmt.Errorf("parallel child %d: %w", i, err)
		}
	}
	p.finishIfComplete()
	return nil
}

// Run advances every child that is not yet done, then checks completion.
// The check happens after the whole pass so no child misses the tick in
// which the group finishes.
func (p *Parallel) Run() error {
	if p.IsDone() || !p.IsStarted() {
		return nil
	}
	for i, child := range p.children {
		if child.IsDone() {
			continue
		}
		if err := child.Run(); err != nil {
			return fmt.Errorf("parallel child %d: %w", i, err)
		}
	}
	p.finishIfComplete()
	return nil
}

// Cancel stops every child that is still running.
func (p *Parallel) Cancel() {
	if p.IsDone() {
		return
	}
	p.cancelRunning()
	p.Base.Cancel()
}

// finishIfComplete applies the policy. Under First, a child that was
// already done before this pass counts the same as one that just finished.
func (p *Parallel) finishIfComplete() {
	if len(p.children) == 0 {
		p.SetDone()
		return
	}
	allDone, anyDone := true, false
	for _, child := range p.children {
		if child.IsDone() {
			anyDone = true
		} else {
			allDone = false
		}
	}
	if (p.policy == All && allDone) || (p.policy == First && anyDone) {
		p.cancelRunning()
		p.SetDone()
	}
}

func (p *Parallel) cancelRunning() {
	for _, child := range p.children[:p.started] {
		if !child.IsDone() {
			child.Cancel()
		}
	}
}

// Describe renders the group and its children.
func (p *Parallel) Describe(indent int) string {
	var sb strings.Builder
	sb.WriteString(Indent(indent))
	sb.WriteString("Parallel (")
	sb.WriteString(p.policy.String())
	sb.WriteString(")")
	describeChildren(&sb, p.children, indent+2)
	return sb.String()
}
