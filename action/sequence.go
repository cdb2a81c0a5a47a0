package action

import (
	"fmt"
	"strings"
)

// Sequence runs its children one at a time, in append order.
type Sequence struct {
	Base
	name     string
	children []Action
	index    int
}

// NewSequence creates a sequence of the given children.
func NewSequence(env *Env, name string, children ...Action) *Sequence {
	return &Sequence{
		Base:     NewBase(env, "sequence"),
		name:     name,
		children: append([]Action(nil), children...),
		index:    -1,
	}
}

// Name returns the sequence name.
func (s *Sequence) Name() string {
	return s.name
}

// Add appends children. It fails once the sequence has started.
func (s *Sequence) Add(children ...Action) error {
	if s.IsStarted() {
		return fmt.Errorf("sequence %q: %w", s.name, ErrGroupStarted)
	}
	s.children = append(s.children, children...)
	return nil
}

// Children returns the children in execution order.
func (s *Sequence) Children() []Action {
	return append([]Action(nil), s.children...)
}

// Current returns the active child, or nil before Start and after the
// sequence has run out of children.
func (s *Sequence) Current() Action {
	if s.index < 0 || s.index >= len(s.children) {
		return nil
	}
	return s.children[s.index]
}

// Start begins the first child that does not finish inside its own Start.
func (s *Sequence) Start() error {
	if err := s.Base.Start(); err != nil {
		return err
	}
	s.index = -1
	return s.advance()
}

// Run advances the active child and moves on when it finishes.
func (s *Sequence) Run() error {
	if s.IsDone() || !s.IsStarted() {
		return nil
	}
	child := s.Current()
	if child == nil {
		s.SetDone()
		return nil
	}
	if err := child.Run(); err != nil {
		return fmt.Errorf("sequence %q step %d: %w", s.name, s.index, err)
	}
	if child.IsDone() {
		return s.advance()
	}
	return nil
}

// Cancel stops the active child. Children not yet reached are left alone.
func (s *Sequence) Cancel() {
	if s.IsDone() {
		return
	}
	if child := s.Current(); child != nil && !child.IsDone() {
		child.Cancel()
	}
	s.Base.Cancel()
}

// advance starts children after the current one until one is still running
// after its Start, finishing the sequence when the list is exhausted.
func (s *Sequence) advance() error {
	for {
		s.index++
		if s.index >= len(s.children) {
			s.SetDone()
			return nil
		}
		child := s.children[s.index]
		if err := child.Start(); err != nil {
			return fmt.Errorf("sequence %q step %d: %w", s.name, s.index, err)
		}
		if !child.IsDone() {
			return nil
		}
	}
}

// Describe renders the sequence and its children.
func (s *Sequence) Describe(indent int) string {
	var sb strings.Builder
	sb.WriteString(Indent(indent))
	sb.WriteString("Sequence")
	if s.name != "" {
		sb.WriteString(" ")
		sb.WriteString(s.name)
	}
	describeChildren(&sb, s.children, indent+2)
	return sb.String()
}
