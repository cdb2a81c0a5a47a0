package action

import (
	"errors"
	"log/slog"
	"strings"
)

// ErrGroupStarted is returned when a group is modified after Start.
var ErrGroupStarted = errors.New("action group already started")

// Action is a unit of schedulable robot behavior.
//
// IMPLEMENTATION CONTRACT:
// - Start() is called exactly once per execution, before any Run()
// - Run() advances the action by one loop tick and must never block
// - Run() on a done action must not change any observable state
// - Cancel() on a done action is a no-op
// - Describe() returns a description indented by the given number of spaces
type Action interface {
	Start() error
	Run() error
	Cancel()
	IsDone() bool
	IsCanceled() bool
	ID() int64
	Describe(indent int) string
}

// Group is an action composed of child actions.
type Group interface {
	Action
	Children() []Action
}

// Validator is implemented by actions that can check their own
// configuration before they are ever started.
type Validator interface {
	Validate() error
}

// Base holds the lifecycle state every action shares. Leaves embed it and
// call through to Start and Cancel when they override them.
type Base struct {
	env      *Env
	kind     string
	id       int64
	logger   *slog.Logger
	started  bool
	done     bool
	canceled bool
}

// NewBase allocates an identity from env and returns a Base for an action
// of the given kind. The kind labels logs and metrics.
func NewBase(env *Env, kind string) Base {
	id := env.IDs.Next()
	return Base{
		env:    env,
		kind:   kind,
		id:     id,
		logger: env.Logger.With("action", kind, "action_id", id),
	}
}

// ID returns the action's unique identity.
func (b *Base) ID() int64 {
	return b.id
}

// Kind returns the action kind given at construction.
func (b *Base) Kind() string {
	return b.kind
}

// Env returns the services the action was built with.
func (b *Base) Env() *Env {
	return b.env
}

// Logger returns a logger tagged with the action kind and identity.
func (b *Base) Logger() *slog.Logger {
	return b.logger
}

// IsStarted reports whether Start has been called.
func (b *Base) IsStarted() bool {
	return b.started
}

// IsDone reports whether the action has finished or been canceled.
func (b *Base) IsDone() bool {
	return b.done
}

// IsCanceled reports whether the action was canceled.
func (b *Base) IsCanceled() bool {
	return b.canceled
}

// Start moves the action into the running state. Restarting a finished
// action is allowed (default actions are restarted every time their
// subsystem goes idle); restarting one that is still running is a misuse
// that is logged and tolerated.
func (b *Base) Start() error {
	if b.started && !b.done {
		b.logger.Warn("action started while still running")
	}
	b.started = true
	b.done = false
	b.canceled = false
	b.logger.Debug("action started")
	b.env.observe(b.kind, EventStarted)
	return nil
}

// SetDone marks the action complete. Only the first call has any effect.
func (b *Base) SetDone() {
	if b.done {
		return
	}
	b.done = true
	b.logger.Debug("action complete")
	b.env.observe(b.kind, EventCompleted)
}

// Cancel marks the action canceled and done. Canceling a done action does
// nothing, so a completed action never becomes canceled after the fact.
func (b *Base) Cancel() {
	if b.done {
		return
	}
	b.done = true
	b.canceled = true
	b.logger.Debug("action canceled")
	b.env.observe(b.kind, EventCanceled)
}

// Indent returns n spaces.
func Indent(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(" ", n)
}

// Dump renders the full action tree rooted at a.
func Dump(a Action) string {
	if a == nil {
		return "<none>"
	}
	return a.Describe(0)
}

// Flatten returns every descendant of a, depth first in child order.
// a itself is not included. Leaves have no descendants.
func Flatten(a Action) []Action {
	var out []Action
	var walk func(Action)
	walk = func(x Action) {
		g, ok := x.(Group)
		if !ok {
			return
		}
		for _, child := range g.Children() {
			out = append(out, child)
			walk(child)
		}
	}
	walk(a)
	return out
}

// Validate runs Validate on a and on every descendant that implements
// Validator and joins the failures.
func Validate(a Action) error {
	var errs []error
	for _, x := range append([]Action{a}, Flatten(a)...) {
		if v, ok := x.(Validator); ok {
			if err := v.Validate(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func describeChildren(sb *strings.Builder, children []Action, indent int) {
	for _, child := range children {
		sb.WriteString("\n")
		sb.WriteString(child.Describe(indent))
	}
}
