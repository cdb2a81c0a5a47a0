package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	defaultAddr        = ":8080"
	defaultHistorySize = 50
)

// ServerConfig represents the diagnostics server configuration.
type ServerConfig struct {
	Listener ListenerConfig `yaml:"listener"`
	Cron     []CronTrigger  `yaml:"cron"`
	// The path to the directory used to store mode period history. Empty
	// keeps history in memory only.
	StateDir string `yaml:"state_dir"`
	// How many mode periods to keep
	HistorySize int `yaml:"history_size"`
}

// ListenerConfig holds HTTP server listener settings.
type ListenerConfig struct {
	// The listen address, defaults to :8080
	Addr string `yaml:"addr"`
	// PEM certificate and key. Both must be set to serve HTTPS.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// TLS reports whether the listener serves HTTPS.
func (l ListenerConfig) TLS() bool {
	return l.CertFile != "" && l.KeyFile != ""
}

// CronTrigger defines a set of diagnostics jobs to run on a schedule.
type CronTrigger struct {
	// The jobs to run, see the cron package for the names
	Jobs []string `yaml:"jobs"`
	// The cron spec to execute the jobs at
	Schedule string `yaml:"schedule"`
}

// LoadConfig reads the YAML config file at the given path and returns a ServerConfig struct.
func LoadConfig(path string) (*ServerConfig, error) {
	var cfg ServerConfig
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open server config file %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode YAML server config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults sets reasonable default values for optional fields.
func (c *ServerConfig) SetDefaults() {
	if c.Listener.Addr == "" {
		c.Listener.Addr = defaultAddr
	}
	if c.HistorySize == 0 {
		c.HistorySize = defaultHistorySize
	}
}

// Validate checks the listener and cron triggers are complete.
func (c *ServerConfig) Validate() error {
	if (c.Listener.CertFile == "") != (c.Listener.KeyFile == "") {
		return fmt.Errorf("listener needs both cert_file and key_file")
	}
	if c.HistorySize < 0 {
		return fmt.Errorf("history_size must not be negative")
	}
	for i, trigger := range c.Cron {
		if len(trigger.Jobs) == 0 {
			return fmt.Errorf("cron trigger %d has no jobs", i)
		}
		if trigger.Schedule == "" {
			return fmt.Errorf("cron trigger %d has no schedule", i)
		}
	}
	return nil
}
