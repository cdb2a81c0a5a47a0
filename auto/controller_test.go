package auto

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xero1425/xerobot/action"
	"github.com/xero1425/xerobot/clock"
)

func TestNewController_MarksBrokenModesUnavailable(t *testing.T) {
	env := newTestEnv()
	c := NewController(env, []Builder{
		stepsBuilder("good", 1),
		{Name: "build error", Build: func(*action.Env) (*Mode, error) { return nil, errors.New("missing setting") }},
		{Name: "invalid", Build: func(env *action.Env) (*Mode, error) {
			return NewMode(env, "invalid", &invalidStep{Base: action.NewBase(env, "invalid")}), nil
		}},
		{Name: "panics", Build: func(*action.Env) (*Mode, error) { panic("nil subsystem") }},
	}, WithTestMode(stepsBuilder("test", 1)))

	info := c.Available()
	require.Len(t, info, 5)
	assert.True(t, info[0].Available)
	assert.False(t, info[1].Available)
	assert.Contains(t, info[1].Error, "missing setting")
	assert.False(t, info[2].Available)
	assert.Contains(t, info[2].Error, "bad position")
	assert.False(t, info[3].Available)
	assert.Equal(t, ModeInfo{Index: TestModeIndex, Name: "test", Available: true}, info[4])

	assert.ErrorIs(t, c.Select(1), ErrModeUnavailable)
	assert.ErrorIs(t, c.Select(3), ErrModeUnavailable)
	assert.ErrorIs(t, c.Select(9), ErrUnknownMode)
	require.NoError(t, c.Select(0))
}

func TestSelect_FailureClearsCurrentRoutine(t *testing.T) {
	env := newTestEnv()
	var built []*step
	offline := false
	broken := Builder{Name: "broken", Build: func(env *action.Env) (*Mode, error) {
		if offline {
			return nil, errors.New("arm offline")
		}
		return NewMode(env, "broken", newStep(env)), nil
	}}
	c := NewController(env, []Builder{recordingBuilder("good", &built), broken})
	built = nil
	offline = true

	require.NoError(t, c.Select(0))
	require.Len(t, built, 1)
	c.Run()
	require.True(t, c.IsRunning())

	err := c.Select(1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arm offline")
	assert.Nil(t, c.Current())
	assert.Equal(t, 1, built[0].cancels)
	_, ok := c.Selected()
	assert.False(t, ok)

	c.Run()
	assert.False(t, c.IsRunning())
	assert.Len(t, built, 1, "the previous routine is not rebuilt")

	assert.Equal(t, err, c.Select(1), "a repeated failed index reports the same error")
	assert.ErrorIs(t, c.Select(7), ErrUnknownMode)
	assert.Nil(t, c.Current())

	require.NoError(t, c.Select(0))
	assert.Equal(t, "good", c.Current().Name())
}

func TestSelect_DefersStart(t *testing.T) {
	env := newTestEnv()
	var built []*step
	c := NewController(env, []Builder{recordingBuilder("a", &built)})
	built = nil

	require.NoError(t, c.Select(0))
	require.Len(t, built, 1)
	assert.Equal(t, 0, built[0].starts, "selection never starts the mode")
	assert.False(t, c.IsRunning())

	c.Run()
	assert.Equal(t, 1, built[0].starts)
	assert.Equal(t, 0, built[0].runs)
	assert.True(t, c.IsRunning())

	c.Run()
	assert.Equal(t, 1, built[0].runs)
}

func TestSelect_SameIndexDoesNotRestart(t *testing.T) {
	env := newTestEnv()
	var built []*step
	c := NewController(env, []Builder{recordingBuilder("a", &built), recordingBuilder("b", &built)})
	built = nil

	require.NoError(t, c.Select(0))
	c.Run()
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Select(0))
	}
	assert.Len(t, built, 1)
	assert.True(t, c.IsRunning())

	require.NoError(t, c.Select(1))
	require.Len(t, built, 2)
	assert.Equal(t, 1, built[0].cancels, "the old mode is canceled")
	assert.Equal(t, 0, built[1].starts)

	idx, ok := c.Selected()
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestSelect_FinishedModeIsRebuilt(t *testing.T) {
	env := newTestEnv()
	var built []*step
	c := NewController(env, []Builder{recordingBuilder("a", &built)})
	built = nil

	require.NoError(t, c.Select(0))
	c.Run()
	c.Cancel()
	assert.False(t, c.IsRunning())

	require.NoError(t, c.Select(0))
	assert.Len(t, built, 2)
}

func TestSelect_TestMode(t *testing.T) {
	env := newTestEnv()
	c := NewController(env, []Builder{stepsBuilder("a", 1)})
	assert.ErrorIs(t, c.Select(-1), ErrNoTestMode)

	c = NewController(env, []Builder{stepsBuilder("a", 1)}, WithTestMode(stepsBuilder("test", 1)))
	require.NoError(t, c.Select(-5))
	idx, ok := c.Selected()
	assert.True(t, ok)
	assert.Equal(t, TestModeIndex, idx)
	assert.Equal(t, "test", c.Current().Name())
}

func TestRun_CompletesMode(t *testing.T) {
	env := newTestEnv()
	c := NewController(env, []Builder{stepsBuilder("two steps", 2)})
	require.NoError(t, c.Select(0))

	c.Run() // start
	c.Run()
	assert.True(t, c.IsRunning())
	c.Run()
	assert.False(t, c.IsRunning())
	assert.True(t, c.Current().IsDone())
	assert.False(t, c.Current().IsCanceled())

	assert.NotPanics(t, c.Run)
}

func TestRun_ContainsFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *step)
	}{
		{"start error", func(s *step) { s.startErr = errors.New("boom") }},
		{"run error", func(s *step) { s.runErr = errors.New("boom") }},
		{"run panic", func(s *step) { s.runPanic = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			var built []*step
			c := NewController(env, []Builder{recordingBuilder("a", &built)})
			built = nil
			require.NoError(t, c.Select(0))
			tt.setup(built[0])

			assert.NotPanics(t, func() {
				c.Run()
				c.Run()
			})
			assert.False(t, c.IsRunning())
			assert.True(t, c.Current().IsCanceled())
		})
	}
}

func TestRun_NothingSelected(t *testing.T) {
	c := NewController(newTestEnv(), nil)
	assert.NotPanics(t, c.Run)
	_, ok := c.Selected()
	assert.False(t, ok)
	assert.Empty(t, c.Available())
}

func TestModeDescribe(t *testing.T) {
	env := newTestEnv()
	m := NewMode(env, "score", action.NewDelay(env, clock.Seconds(1)))
	assert.Equal(t, "AutoMode score\n  Delay 1.00s", m.Describe(0))
}

func TestStaticSelector(t *testing.T) {
	s := NewStaticSelector(2)
	assert.Equal(t, 2, s.AutoModeIndex())
	s.Set(-1)
	assert.Equal(t, -1, s.AutoModeIndex())

	var _ Selector = s
}

// Test helpers
// ---------------------------------------------------------------------

func newTestEnv() *action.Env {
	return action.NewEnv(
		action.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		action.WithClock(clock.NewManualClock()),
	)
}

// stepsBuilder builds a mode of n steps that each finish after one run.
func stepsBuilder(name string, n int) Builder {
	return Builder{Name: name, Build: func(env *action.Env) (*Mode, error) {
		m := NewMode(env, name)
		for i := 0; i < n; i++ {
			if err := m.Add(newStep(env)); err != nil {
				return nil, err
			}
		}
		return m, nil
	}}
}

// recordingBuilder builds a single step mode and records every step built.
func recordingBuilder(name string, built *[]*step) Builder {
	return Builder{Name: name, Build: func(env *action.Env) (*Mode, error) {
		s := newStep(env)
		s.finishAfterRuns = 100
		*built = append(*built, s)
		return NewMode(env, name, s), nil
	}}
}

type step struct {
	action.Base
	finishAfterRuns int
	startErr        error
	runErr          error
	runPanic        bool
	starts          int
	runs            int
	cancels         int
}

func newStep(env *action.Env) *step {
	return &step{Base: action.NewBase(env, "step"), finishAfterRuns: 1}
}

func (s *step) Start() error {
	if err := s.Base.Start(); err != nil {
		return err
	}
	s.starts++
	return s.startErr
}

func (s *step) Run() error {
	if s.IsDone() {
		return nil
	}
	s.runs++
	if s.runPanic {
		panic("step exploded")
	}
	if s.runErr != nil {
		return s.runErr
	}
	if s.runs >= s.finishAfterRuns {
		s.SetDone()
	}
	return nil
}

func (s *step) Cancel() {
	if s.IsDone() {
		return
	}
	s.cancels++
	s.Base.Cancel()
}

func (s *step) Describe(indent int) string {
	return action.Indent(indent) + "Step"
}

type invalidStep struct {
	action.Base
}

func (s *invalidStep) Run() error                 { return nil }
func (s *invalidStep) Describe(indent int) string { return action.Indent(indent) + "Invalid" }
func (s *invalidStep) Validate() error            { return errors.New("bad position") }
