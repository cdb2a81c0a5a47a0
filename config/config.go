// Package config loads the robot process configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xero1425/xerobot/logging"
	serverconfig "github.com/xero1425/xerobot/server/config"
)

const (
	// Default loop settings
	defaultPeriod = 20 * time.Millisecond
	maxPeriod     = time.Second

	// Default monitoring settings
	defaultMetricsPrefix = "xerobot"
	defaultJobName       = "robotsim"
	defaultPushInterval  = 5 * time.Second

	// Default simulated match
	defaultDisabled   = 2 * time.Second
	defaultAutonomous = 15 * time.Second
	defaultTeleop     = 135 * time.Second

	// Default logging settings
	defaultLogLevel     = "info"
	defaultLogFormat    = "text"
	defaultLogOutput    = "stderr"
	defaultCaptureLevel = "info"

	redactedPassword = "REDACTED"
)

// Metrics modes
const (
	MetricsOff    = "off"
	MetricsScrape = "scrape"
	MetricsPush   = "push"
)

// Config represents the complete robot configuration
type Config struct {
	Loop       LoopConfig                `yaml:"loop"`
	Logging    logging.Config            `yaml:"logging"`
	Settings   string                    `yaml:"settings"`
	Monitoring MonitoringConfig          `yaml:"monitoring"`
	Server     serverconfig.ServerConfig `yaml:"server"`
	Auto       AutoConfig                `yaml:"auto"`
	Sim        SimConfig                 `yaml:"sim"`
}

// LoopConfig controls the control loop
type LoopConfig struct {
	// Period is the time between ticks
	Period time.Duration `yaml:"period"`
}

// MonitoringConfig holds metrics settings
type MonitoringConfig struct {
	// Mode is off, scrape (served on /metrics) or push (remote write)
	Mode               string        `yaml:"mode"`
	VictoriaMetricsURL string        `yaml:"victoriametrics_url"`
	MetricsPrefix      string        `yaml:"metrics_prefix"`
	JobName            string        `yaml:"jobname"`
	Instance           string        `yaml:"instance"`
	PushInterval       time.Duration `yaml:"push_interval"`
}

// AutoConfig picks the autonomous routine when no operator selects one
type AutoConfig struct {
	Selection int `yaml:"selection"`
}

// SimConfig describes the simulated match: how long each mode lasts.
// A zero duration skips the mode.
type SimConfig struct {
	Disabled   time.Duration `yaml:"disabled"`
	Autonomous time.Duration `yaml:"autonomous"`
	Teleop     time.Duration `yaml:"teleop"`
	// Matches is the number of matches to play. Zero plays one.
	Matches int `yaml:"matches"`
}

// Validate performs basic validation on the configuration
func (c *Config) Validate() error {
	if c.Loop.Period <= 0 {
		return fmt.Errorf("loop period must be positive")
	}
	if c.Loop.Period > maxPeriod {
		return fmt.Errorf("loop period %v exceeds %v", c.Loop.Period, maxPeriod)
	}
	switch c.Monitoring.Mode {
	case MetricsOff, MetricsScrape:
	case MetricsPush:
		if c.Monitoring.VictoriaMetricsURL == "" {
			return fmt.Errorf("VictoriaMetrics URL is required for push mode")
		}
		if _, err := url.Parse(c.Monitoring.VictoriaMetricsURL); err != nil {
			return fmt.Errorf("invalid VictoriaMetrics URL: %w", err)
		}
	default:
		return fmt.Errorf("unknown monitoring mode %q", c.Monitoring.Mode)
	}
	if c.Sim.Disabled < 0 || c.Sim.Autonomous < 0 || c.Sim.Teleop < 0 {
		return fmt.Errorf("sim durations must not be negative")
	}
	if c.Sim.Matches < 0 {
		return fmt.Errorf("sim matches must not be negative")
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// SetDefaults sets reasonable default values for optional fields
func (c *Config) SetDefaults() {
	if c.Loop.Period == 0 {
		c.Loop.Period = defaultPeriod
	}
	if c.Monitoring.Mode == "" {
		c.Monitoring.Mode = MetricsScrape
	}
	if c.Monitoring.MetricsPrefix == "" {
		c.Monitoring.MetricsPrefix = defaultMetricsPrefix
	}
	if c.Monitoring.JobName == "" {
		c.Monitoring.JobName = defaultJobName
	}
	if c.Monitoring.PushInterval == 0 {
		c.Monitoring.PushInterval = defaultPushInterval
	}
	if c.Sim.Disabled == 0 && c.Sim.Autonomous == 0 && c.Sim.Teleop == 0 {
		c.Sim.Disabled = defaultDisabled
		c.Sim.Autonomous = defaultAutonomous
		c.Sim.Teleop = defaultTeleop
	}
	if c.Sim.Matches == 0 {
		c.Sim.Matches = 1
	}
	// Set logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Output == "" {
		c.Logging.Output = defaultLogOutput
	}
	if c.Logging.CaptureLevel == "" {
		c.Logging.CaptureLevel = defaultCaptureLevel
	}
	c.Server.SetDefaults()
}

// Redacted returns a copy with credentials removed from URLs.
func (c Config) Redacted() Config {
	c.Monitoring.VictoriaMetricsURL = redactURL(c.Monitoring.VictoriaMetricsURL)
	c.Server.Cron = append([]serverconfig.CronTrigger(nil), c.Server.Cron...)
	return c
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), redactedPassword)
	}
	return u.String()
}

// LoadConfig reads the YAML config file at the given path and returns a Config struct
func LoadConfig(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode YAML config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
