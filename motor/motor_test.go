package motor

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xero1425/xerobot/action"
	"github.com/xero1425/xerobot/clock"
	"github.com/xero1425/xerobot/settings"
	"github.com/xero1425/xerobot/subsystem"
)

const tick = 20 * time.Millisecond

var testConfig = Config{MaxSpeed: 10, MinPosition: 0, MaxPosition: 100, Tolerance: 0.5, Gain: 0.5}

func TestConfigFromSettings(t *testing.T) {
	s, err := settings.Parse([]byte(`
subsystems:
  arm:
    max_speed: 40
    min: -10
    max: 90
    gain: 0.2
  broken:
    min: 0
    max: 1
  inverted:
    max_speed: 1
    min: 5
    max: 1
`))
	require.NoError(t, err)

	cfg, err := ConfigFromSettings(s, "arm")
	require.NoError(t, err)
	assert.Equal(t, Config{MaxSpeed: 40, MinPosition: -10, MaxPosition: 90, Tolerance: defaultTolerance, Gain: 0.2}, cfg)

	_, err = ConfigFromSettings(s, "broken")
	assert.ErrorIs(t, err, settings.ErrMissingParameter)

	_, err = ConfigFromSettings(s, "inverted")
	assert.ErrorContains(t, err, "must be below")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"zero speed", func(c *Config) { c.MaxSpeed = 0 }, true},
		{"empty range", func(c *Config) { c.MaxPosition = c.MinPosition }, true},
		{"zero tolerance", func(c *Config) { c.Tolerance = 0 }, true},
		{"negative gain", func(c *Config) { c.Gain = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig
			tt.modify(&cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestMotor_IntegratesPosition(t *testing.T) {
	m, clk := newTestMotor(t, nil)

	m.ComputeState()
	m.SetPower(2)
	assert.Equal(t, 1.0, m.Power(), "power is clamped")

	clk.Advance(500 * time.Millisecond)
	m.ComputeState()
	assert.InDelta(t, 5.0, m.Position(), 1e-9)
}

func TestMotor_SoftLimits(t *testing.T) {
	m, clk := newTestMotor(t, nil)
	m.ComputeState()

	m.SetPower(-1)
	clk.Advance(time.Second)
	m.ComputeState()
	assert.Equal(t, 0.0, m.Position())
	assert.Equal(t, 0.0, m.Power(), "driving into a limit stops the output")

	m.SetPower(1)
	clk.Advance(20 * time.Second)
	m.ComputeState()
	assert.Equal(t, 100.0, m.Position())
	assert.Equal(t, 0.0, m.Power())
}

func TestGoto_ReachesTarget(t *testing.T) {
	m, clk := newTestMotor(t, nil)
	m.ComputeState()

	g := NewGoto(m, 5)
	require.NoError(t, g.Start())
	assert.Equal(t, 1.0, m.Power())

	ticks := runUntilDone(m, clk, g, 200)
	assert.True(t, g.IsDone())
	assert.False(t, g.IsCanceled())
	assert.Less(t, ticks, 200)
	assert.InDelta(t, 5.0, m.Position(), testConfig.Tolerance)
	assert.Equal(t, 0.0, m.Power())
}

func TestGoto_AlreadyThere(t *testing.T) {
	m, _ := newTestMotor(t, nil)
	g := NewGoto(m, 0.2)
	require.NoError(t, g.Start())
	assert.True(t, g.IsDone(), "finishes inside Start")
}

func TestGoto_OutOfRange(t *testing.T) {
	m, _ := newTestMotor(t, nil)
	g := NewGoto(m, 150)
	assert.ErrorIs(t, g.Validate(), ErrOutOfRange)
	assert.ErrorIs(t, action.Validate(g), ErrOutOfRange)
	assert.ErrorIs(t, g.Start(), ErrOutOfRange)
}

func TestGotoNamed(t *testing.T) {
	s, err := settings.Parse([]byte(`
subsystems:
  arm:
    positions:
      score: 42
      broken: high
`))
	require.NoError(t, err)
	m, _ := newTestMotor(t, s)

	g, err := NewGotoNamed(m, "score")
	require.NoError(t, err)
	assert.Equal(t, 42.0, g.Target())
	assert.Equal(t, "Goto arm score (42.00)", g.Describe(0))

	_, err = NewGotoNamed(m, "stow")
	assert.ErrorIs(t, err, settings.ErrMissingParameter)

	_, err = NewGotoNamed(m, "broken")
	assert.ErrorIs(t, err, settings.ErrBadParameter)

	bare, _ := newTestMotor(t, nil)
	_, err = NewGotoNamed(bare, "score")
	assert.Error(t, err)
}

func TestGoto_CancelStops(t *testing.T) {
	m, _ := newTestMotor(t, nil)
	g := NewGoto(m, 50)
	require.NoError(t, g.Start())
	require.NotZero(t, m.Power())

	g.Cancel()
	assert.True(t, g.IsCanceled())
	assert.Equal(t, 0.0, m.Power())
}

func TestPower_Duration(t *testing.T) {
	m, clk := newTestMotor(t, nil)
	p := NewPower(m, 0.5, time.Second)
	require.NoError(t, p.Start())
	assert.Equal(t, 0.5, m.Power())
	assert.Equal(t, "Power arm 0.50 for 1.00s", p.Describe(0))

	clk.Advance(500 * time.Millisecond)
	require.NoError(t, p.Run())
	assert.False(t, p.IsDone())

	clk.Advance(600 * time.Millisecond)
	require.NoError(t, p.Run())
	assert.True(t, p.IsDone())
	assert.Equal(t, 0.0, m.Power())
}

func TestPower_UntilCanceled(t *testing.T) {
	m, clk := newTestMotor(t, nil)
	p := NewPower(m, -0.25, 0)
	require.NoError(t, p.Start())

	clk.Advance(time.Hour)
	require.NoError(t, p.Run())
	assert.False(t, p.IsDone())

	p.Cancel()
	assert.Equal(t, 0.0, m.Power())
}

func TestPower_ReleasedWhenSiblingFailsInStart(t *testing.T) {
	m, _ := newTestMotor(t, nil)
	env := m.Env()
	group := action.NewParallel(env, action.All,
		action.NewParallel(env, action.All,
			NewPower(m, 0.5, 0),
			action.NewFunc(env, "broken", func() error { return errors.New("boom") }),
		),
	)

	err := m.SetAction(group, false)
	require.ErrorIs(t, err, subsystem.ErrActionFailed)
	assert.True(t, group.IsCanceled())
	assert.Equal(t, 0.0, m.Power())
	assert.False(t, m.IsBusy())
}

func TestHold_CorrectsDrift(t *testing.T) {
	m, _ := newTestMotor(t, nil)
	m.position = 20

	h := NewHold(m)
	require.NoError(t, h.Start())
	assert.Equal(t, 0.0, m.Power())

	m.position = 18
	require.NoError(t, h.Run())
	assert.Greater(t, m.Power(), 0.0)
	assert.False(t, h.IsDone())
}

func TestMotorSubsystem_DefaultHoldResumes(t *testing.T) {
	m, clk := newTestMotor(t, nil)
	m.SetDefaultAction(NewHold(m))
	require.True(t, m.IsRunningDefault())

	g := NewGoto(m, 10)
	require.NoError(t, m.SetAction(g, false))
	assert.True(t, m.IsBusy())

	for i := 0; i < 200 && !g.IsDone(); i++ {
		clk.Advance(tick)
		m.ComputeState()
		m.Run()
	}
	require.True(t, g.IsDone())

	clk.Advance(tick)
	m.ComputeState()
	m.Run()
	assert.True(t, m.IsRunningDefault())
}

func TestReset_StopsOutput(t *testing.T) {
	m, _ := newTestMotor(t, nil)
	m.SetPower(0.7)
	m.Reset()
	assert.Equal(t, 0.0, m.Power())
}

// Test helpers
// ---------------------------------------------------------------------

func newTestMotor(t *testing.T, s *settings.Settings) (*Motor, *clock.ManualClock) {
	t.Helper()
	clk := clock.NewManualClock()
	env := action.NewEnv(
		action.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		action.WithClock(clk),
	)
	return New(env, "arm", testConfig, s), clk
}

func runUntilDone(m *Motor, clk *clock.ManualClock, a action.Action, limit int) int {
	for i := 0; i < limit; i++ {
		if a.IsDone() {
			return i
		}
		clk.Advance(tick)
		m.ComputeState()
		_ = a.Run()
	}
	return limit
}
