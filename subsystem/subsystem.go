package subsystem

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xero1425/xerobot/action"
)

var (
	// ErrDefaultAction is returned when the default action is assigned explicitly.
	ErrDefaultAction = errors.New("default action cannot be assigned explicitly")
	// ErrParentBusy is returned when an ancestor subsystem is running an action.
	ErrParentBusy = errors.New("parent subsystem is busy")
	// ErrActionFailed is returned when an assigned action fails during Start.
	ErrActionFailed = errors.New("action failed")
	// ErrDuplicateName is returned when a sibling already has the same name.
	ErrDuplicateName = errors.New("duplicate subsystem name")
	// ErrDuplicateDriveBase is returned when a second drivebase joins a tree.
	ErrDuplicateDriveBase = errors.New("drivebase already registered")
	// ErrDuplicateOI is returned when a second OI subsystem joins a tree.
	ErrDuplicateOI = errors.New("oi subsystem already registered")
	// ErrHasParent is returned when a subsystem is added to a second parent.
	ErrHasParent = errors.New("subsystem already has a parent")
	// ErrPanic wraps a recovered panic.
	ErrPanic = errors.New("panic")
)

// FailureObserver is told about every contained failure, typically to
// count it in metrics. It is installed on the root.
type FailureObserver interface {
	SubsystemFailure(subsystem, phase string)
}

// Subsystem is a node of the hardware ownership tree.
type Subsystem struct {
	env    *action.Env
	name   string
	logger *slog.Logger
	role   Role

	parent   *Subsystem
	children []*Subsystem

	action          action.Action
	defaultAction   action.Action
	defaultFinished bool

	// Rendered for snapshots, which are taken every tick.
	actionText  describeCache
	defaultText describeCache

	stateFn func() error
	initFn  func(Mode) error
	resetFn func()

	// Registry, meaningful on the root only.
	driveBase *Subsystem
	oi        *Subsystem
	observer  FailureObserver
}

// Option configures a Subsystem.
type Option func(*Subsystem)

// WithStateFunc sets the function that reads hardware state each tick.
func WithStateFunc(fn func() error) Option {
	return func(s *Subsystem) {
		s.stateFn = fn
	}
}

// WithInitFunc sets the function called on every mode transition.
func WithInitFunc(fn func(Mode) error) Option {
	return func(s *Subsystem) {
		s.initFn = fn
	}
}

// WithResetFunc sets the function called when the robot is reset.
func WithResetFunc(fn func()) Option {
	return func(s *Subsystem) {
		s.resetFn = fn
	}
}

// WithRole marks the subsystem as the drivebase or the OI.
func WithRole(r Role) Option {
	return func(s *Subsystem) {
		s.role = r
	}
}

// New creates a detached subsystem. Attach it with AddChild.
func New(env *action.Env, name string, opts ...Option) *Subsystem {
	s := &Subsystem{
		env:    env,
		name:   name,
		logger: env.Logger.With("subsystem", name),
	}
	for _, opt := range opts {
		opt(s)
	}
	switch s.role {
	case RoleDriveBase:
		s.driveBase = s
	case RoleOI:
		s.oi = s
	}
	return s
}

// Name returns the subsystem name.
func (s *Subsystem) Name() string {
	return s.name
}

// Role returns the subsystem role.
func (s *Subsystem) Role() Role {
	return s.role
}

// Env returns the services the subsystem was built with.
func (s *Subsystem) Env() *action.Env {
	return s.env
}

// Logger returns a logger tagged with the subsystem name.
func (s *Subsystem) Logger() *slog.Logger {
	return s.logger
}

// Parent returns the parent, or nil for the root.
func (s *Subsystem) Parent() *Subsystem {
	return s.parent
}

// Children returns the child subsystems in the order they were added.
func (s *Subsystem) Children() []*Subsystem {
	return append([]*Subsystem(nil), s.children...)
}

// Path returns the slash separated names from the root down to s.
func (s *Subsystem) Path() string {
	if s.parent == nil {
		return s.name
	}
	return s.parent.Path() + "/" + s.name
}

// SettingKey builds the settings key for a parameter of this subsystem,
// e.g. SettingKey("positions", "stow") is "subsystems.arm.positions.stow".
func (s *Subsystem) SettingKey(parts ...string) string {
	return strings.Join(append([]string{"subsystems", s.name}, parts...), ".")
}

// AddChild attaches child below s. Sibling names must be unique and the
// whole tree may contain at most one drivebase and one OI.
func (s *Subsystem) AddChild(child *Subsystem) error {
	if child.parent != nil {
		return fmt.Errorf("adding %q to %q: %w", child.name, s.name, ErrHasParent)
	}
	for _, c := range s.children {
		if c.name == child.name {
			return fmt.Errorf("adding %q to %q: %w", child.name, s.name, ErrDuplicateName)
		}
	}

	root := s.root()
	if child.driveBase != nil && root.driveBase != nil {
		return fmt.Errorf("adding %q to %q: %w", child.name, s.name, ErrDuplicateDriveBase)
	}
	if child.oi != nil && root.oi != nil {
		return fmt.Errorf("adding %q to %q: %w", child.name, s.name, ErrDuplicateOI)
	}
	if child.driveBase != nil {
		root.driveBase = child.driveBase
	}
	if child.oi != nil {
		root.oi = child.oi
	}
	child.driveBase, child.oi = nil, nil

	child.parent = s
	s.children = append(s.children, child)
	return nil
}

// DriveBase returns the tree's drivebase, if one is registered.
func (s *Subsystem) DriveBase() *Subsystem {
	return s.root().driveBase
}

// OI returns the tree's operator interface subsystem, if one is registered.
func (s *Subsystem) OI() *Subsystem {
	return s.root().oi
}

// SetFailureObserver installs the observer on the root of the tree.
func (s *Subsystem) SetFailureObserver(o FailureObserver) {
	s.root().observer = o
}

// Lookup finds a descendant by slash separated path relative to s.
func (s *Subsystem) Lookup(path string) *Subsystem {
	cur := s
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part == "" {
			continue
		}
		var next *Subsystem
		for _, c := range cur.children {
			if c.name == part {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

// Walk visits s and every descendant, parents before children.
func (s *Subsystem) Walk(fn func(*Subsystem)) {
	fn(s)
	for _, c := range s.children {
		c.Walk(fn)
	}
}

func (s *Subsystem) root() *Subsystem {
	r := s
	for r.parent != nil {
		r = r.parent
	}
	return r
}
