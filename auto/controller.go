package auto

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xero1425/xerobot/action"
)

// TestModeIndex is the index reported for the test routine.
const TestModeIndex = -1

var (
	// ErrUnknownMode is returned when an index has no routine.
	ErrUnknownMode = errors.New("unknown auto mode")
	// ErrModeUnavailable is returned when a routine failed to build or validate.
	ErrModeUnavailable = errors.New("auto mode unavailable")
	// ErrNoTestMode is returned when the test routine is selected but none is set.
	ErrNoTestMode = errors.New("no test auto mode configured")
	// ErrPanic wraps a recovered panic.
	ErrPanic = errors.New("panic")
)

// ModeInfo describes one selectable routine.
type ModeInfo struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

type entry struct {
	builder Builder
	err     error
}

// Controller drives the selected routine. All methods except Available
// must be called from the loop goroutine.
type Controller struct {
	env    *action.Env
	logger *slog.Logger

	modes []entry
	test  *entry
	info  []ModeInfo

	selected int
	current  *Mode
	started  bool
	failed   error // last failed selection of index selected
}

// Option configures a Controller.
type Option func(*Controller)

// WithTestMode sets the routine selected by a negative index.
func WithTestMode(b Builder) Option {
	return func(c *Controller) {
		c.test = &entry{builder: b}
	}
}

// WithLogger sets the controller's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController builds every routine once to check it. A routine whose
// builder fails, or whose action tree fails validation, is logged and never
// offered for selection.
func NewController(env *action.Env, builders []Builder, opts ...Option) *Controller {
	c := &Controller{
		env:      env,
		logger:   env.Logger.With("component", "auto"),
		selected: TestModeIndex - 1,
	}
	for _, opt := range opts {
		opt(c)
	}

	for i, b := range builders {
		e := entry{builder: b, err: c.probe(b)}
		c.modes = append(c.modes, e)
		c.info = append(c.info, newModeInfo(i, e))
	}
	if c.test != nil {
		c.test.err = c.probe(c.test.builder)
		c.info = append(c.info, newModeInfo(TestModeIndex, *c.test))
	}
	return c
}

func newModeInfo(index int, e entry) ModeInfo {
	mi := ModeInfo{Index: index, Name: e.builder.Name, Available: e.err == nil}
	if e.err != nil {
		mi.Error = e.err.Error()
	}
	return mi
}

func (c *Controller) probe(b Builder) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
		if err != nil {
			c.logger.Error("auto mode unavailable", "mode", b.Name, "error", err)
		}
	}()
	m, err := b.Build(c.env)
	if err != nil {
		return fmt.Errorf("building %q: %w", b.Name, err)
	}
	if err := action.Validate(m); err != nil {
		return fmt.Errorf("validating %q: %w", b.Name, err)
	}
	return nil
}

// Available lists every routine, including the unavailable ones, in index
// order with the test routine last. The slice is fixed at construction and
// safe to read from any goroutine.
func (c *Controller) Available() []ModeInfo {
	return append([]ModeInfo(nil), c.info...)
}

// Select makes the routine at index current. Negative indexes select the
// test routine. Selecting the routine that is already current and not yet
// finished does nothing; otherwise a fresh instance is built and it starts
// on the next Run. A failed selection cancels and clears the current
// routine so that nothing runs until a good index is selected.
func (c *Controller) Select(index int) error {
	if index < 0 {
		index = TestModeIndex
	}
	if index == c.selected {
		if c.failed != nil {
			return c.failed
		}
		if c.current != nil && !c.current.IsDone() {
			return nil
		}
	}
	m, name, err := c.build(index)
	if err != nil {
		c.Cancel()
		c.current = nil
		c.selected = index
		c.started = false
		c.failed = err
		return err
	}

	c.Cancel()
	c.current = m
	c.selected = index
	c.started = false
	c.failed = nil
	c.logger.Info("auto mode selected", "index", index, "mode", name)
	return nil
}

func (c *Controller) build(index int) (*Mode, string, error) {

	var e *entry
	switch {
	case index == TestModeIndex:
		if c.test == nil {
			return nil, "", ErrNoTestMode
		}
		e = c.test
	case index >= len(c.modes):
		return nil, "", fmt.Errorf("%w: %d", ErrUnknownMode, index)
	default:
		e = &c.modes[index]
	}
	if e.err != nil {
		return nil, "", fmt.Errorf("%w: %q: %w", ErrModeUnavailable, e.builder.Name, e.err)
	}

	m, err := e.builder.Build(c.env)
	if err != nil {
		return nil, "", fmt.Errorf("building %q: %w", e.builder.Name, err)
	}
	return m, e.builder.Name, nil
}

// Run starts the current routine on its first call and advances it on
// every later one. Failures cancel the routine and are logged, never
// returned.
func (c *Controller) Run() {
	m := c.current
	if m == nil || m.IsDone() {
		return
	}
	if !c.started {
		c.started = true
		c.logger.Info("auto mode starting", "mode", m.Name())
		c.contain(m, "start", m.Start)
	} else {
		c.contain(m, "run", m.Run)
	}
	if m.IsDone() && !m.IsCanceled() {
		c.logger.Info("auto mode complete", "mode", m.Name())
	}
}

func (c *Controller) contain(m *Mode, phase string, fn func() error) {
	var err error
	defer func() {
		var stack []byte
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
			stack = debug.Stack()
		}
		if err == nil {
			return
		}
		attrs := []any{"mode", m.Name(), "phase", phase, "error", err}
		if stack != nil {
			attrs = append(attrs, "stack", string(stack))
		}
		c.logger.Error("auto mode failed", attrs...)
		func() {
			defer func() { _ = recover() }()
			m.Cancel()
		}()
	}()
	err = fn()
}

// Cancel stops the current routine if it is running. The routine stays
// selected but finished, so the next Select of the same index rebuilds it.
// A selected routine that has not started is left alone.
func (c *Controller) Cancel() {
	if c.current == nil || !c.started || c.current.IsDone() {
		return
	}
	c.current.Cancel()
	c.logger.Info("auto mode canceled", "mode", c.current.Name())
}

// IsRunning reports whether the current routine has started and not finished.
func (c *Controller) IsRunning() bool {
	return c.current != nil && c.started && !c.current.IsDone()
}

// Current returns the current routine instance, or nil.
func (c *Controller) Current() *Mode {
	return c.current
}

// Selected returns the selected index, and false when nothing is selected.
func (c *Controller) Selected() (int, bool) {
	if c.current == nil {
		return 0, false
	}
	return c.selected, true
}
