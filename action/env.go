package action

import (
	"log/slog"
	"sync/atomic"

	"github.com/xero1425/xerobot/clock"
)

// Event is a lifecycle transition reported to an Observer.
type Event int

const (
	// EventStarted is reported each time Start is called.
	EventStarted Event = iota
	// EventCompleted is reported once when an action finishes on its own.
	EventCompleted
	// EventCanceled is reported once when an action is canceled.
	EventCanceled
)

// String returns a human-readable representation of the Event
func (e Event) String() string {
	switch e {
	case EventStarted:
		return "started"
	case EventCompleted:
		return "completed"
	case EventCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Observer receives action lifecycle events, typically to feed metrics.
type Observer interface {
	ActionEvent(kind string, event Event)
}

// IDSource hands out unique, monotonically increasing action identities.
// One IDSource is created per process and shared through Env.
type IDSource struct {
	next atomic.Int64
}

// Next returns the next identity. The first value is 1.
func (s *IDSource) Next() int64 {
	return s.next.Add(1)
}

// Env carries the process-wide services actions need. It is built once
// during robot bring-up and passed to every action constructor.
type Env struct {
	Logger   *slog.Logger
	Clock    clock.Clock
	IDs      *IDSource
	Observer Observer
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithLogger sets the logger actions derive their own loggers from.
func WithLogger(logger *slog.Logger) EnvOption {
	return func(e *Env) {
		e.Logger = logger
	}
}

// WithClock sets the robot time source.
func WithClock(c clock.Clock) EnvOption {
	return func(e *Env) {
		e.Clock = c
	}
}

// WithObserver installs a lifecycle observer.
func WithObserver(o Observer) EnvOption {
	return func(e *Env) {
		e.Observer = o
	}
}

// NewEnv creates an Env. Unset services default to slog.Default, a
// SystemClock and a fresh IDSource.
func NewEnv(opts ...EnvOption) *Env {
	e := &Env{}
	for _, opt := range opts {
		opt(e)
	}
	if e.Logger == nil {
		e.Logger = slog.Default()
	}
	if e.Clock == nil {
		e.Clock = clock.NewSystemClock()
	}
	if e.IDs == nil {
		e.IDs = &IDSource{}
	}
	return e
}

func (e *Env) observe(kind string, event Event) {
	if e.Observer != nil {
		e.Observer.ActionEvent(kind, event)
	}
}
