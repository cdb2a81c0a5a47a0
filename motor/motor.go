// Package motor is a simulated one-axis mechanism, used as the hardware
// behind the arm, grabber and drivebase of the simulated robot.
package motor

import (
	"fmt"
	"math"
	"time"

	"github.com/xero1425/xerobot/action"
	"github.com/xero1425/xerobot/settings"
	"github.com/xero1425/xerobot/subsystem"
)

const (
	defaultTolerance = 0.5
	defaultGain      = 0.1
)

// Config describes the mechanism.
type Config struct {
	// MaxSpeed is the speed in units per second at full power.
	MaxSpeed    float64
	MinPosition float64
	MaxPosition float64
	// Tolerance is how close counts as at target.
	Tolerance float64
	// Gain is the proportional gain used to drive toward a target.
	Gain float64
}

// ConfigFromSettings reads a mechanism's parameters from the
// "subsystems.<name>." settings. max_speed, min and max are required.
func ConfigFromSettings(s *settings.Settings, name string) (Config, error) {
	key := func(k string) string { return "subsystems." + name + "." + k }
	var cfg Config
	var err error
	if cfg.MaxSpeed, err = s.Double(key("max_speed")); err != nil {
		return Config{}, err
	}
	if cfg.MinPosition, err = s.Double(key("min")); err != nil {
		return Config{}, err
	}
	if cfg.MaxPosition, err = s.Double(key("max")); err != nil {
		return Config{}, err
	}
	cfg.Tolerance = defaultTolerance
	if s.Has(key("tolerance")) {
		if cfg.Tolerance, err = s.Double(key("tolerance")); err != nil {
			return Config{}, err
		}
	}
	cfg.Gain = defaultGain
	if s.Has(key("gain")) {
		if cfg.Gain, err = s.Double(key("gain")); err != nil {
			return Config{}, err
		}
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.MaxSpeed <= 0 {
		return fmt.Errorf("max speed must be positive, got %v", c.MaxSpeed)
	}
	if c.MinPosition >= c.MaxPosition {
		return fmt.Errorf("min position %v must be below max position %v", c.MinPosition, c.MaxPosition)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %v", c.Tolerance)
	}
	if c.Gain <= 0 {
		return fmt.Errorf("gain must be positive, got %v", c.Gain)
	}
	return nil
}

// Motor is a subsystem driving one simulated mechanism.
type Motor struct {
	*subsystem.Subsystem
	cfg      Config
	settings *settings.Settings

	power    float64
	position float64
	last     time.Duration
	sampled  bool
}

// New creates a mechanism subsystem. Named positions are looked up in s,
// which may be nil when only explicit targets are used.
func New(env *action.Env, name string, cfg Config, s *settings.Settings, opts ...subsystem.Option) *Motor {
	m := &Motor{cfg: cfg, settings: s, position: cfg.MinPosition}
	opts = append(opts,
		subsystem.WithStateFunc(m.computeState),
		subsystem.WithResetFunc(m.reset),
	)
	m.Subsystem = subsystem.New(env, name, opts...)
	return m
}

// Config returns the mechanism configuration.
func (m *Motor) Config() Config {
	return m.cfg
}

// SetPower sets the output, clamped to [-1, 1].
func (m *Motor) SetPower(p float64) {
	m.power = clamp(p, -1, 1)
}

// Power returns the current output.
func (m *Motor) Power() float64 {
	return m.power
}

// Position returns the position computed on the last tick.
func (m *Motor) Position() float64 {
	return m.position
}

// AtTarget reports whether the mechanism is within tolerance of target.
func (m *Motor) AtTarget(target float64) bool {
	return math.Abs(target-m.position) <= m.cfg.Tolerance
}

// NamedPosition looks up "subsystems.<name>.positions.<pos>".
func (m *Motor) NamedPosition(pos string) (float64, error) {
	if m.settings == nil {
		return 0, fmt.Errorf("motor %q: no settings for position %q", m.Name(), pos)
	}
	return m.settings.Double(m.SettingKey("positions", pos))
}

// InRange reports whether pos lies within the soft limits.
func (m *Motor) InRange(pos float64) bool {
	return pos >= m.cfg.MinPosition && pos <= m.cfg.MaxPosition
}

// computeState integrates the position over the time since the last tick.
func (m *Motor) computeState() error {
	now := m.Env().Clock.Now()
	if m.sampled {
		dt := (now - m.last).Seconds()
		m.position += m.power * m.cfg.MaxSpeed * dt
	}
	m.last = now
	m.sampled = true

	if m.position <= m.cfg.MinPosition {
		m.position = m.cfg.MinPosition
		if m.power < 0 {
			m.power = 0
		}
	}
	if m.position >= m.cfg.MaxPosition {
		m.position = m.cfg.MaxPosition
		if m.power > 0 {
			m.power = 0
		}
	}
	return nil
}

func (m *Motor) reset() {
	m.power = 0
}

// drive sets a proportional output toward target and reports arrival.
func (m *Motor) drive(target float64) bool {
	if m.AtTarget(target) {
		m.power = 0
		return true
	}
	m.SetPower((target - m.position) * m.cfg.Gain)
	return false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
