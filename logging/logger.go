// Package logging provides structured logging for the robot.
// It uses Go's standard library slog package, with an optional capturing
// layer that keeps the most recent messages of every subsystem in memory
// for the diagnostics server.
//
// Example usage:
//
//	logger, err := logging.New(logging.Config{
//		Level:  "info",
//		Format: "text",
//	})
//	logger.Info("mode change", "mode", "autonomous")
//	logger.Error("subsystem failure contained", "subsystem", "arm", "error", err)
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"
)

const defaultCaptureSize = 200

// Config holds the configuration for the logger.
type Config struct {
	// Level sets the minimum log level. Valid values: debug, info, warn, error
	Level string `yaml:"level"`
	// Format sets the output format. Valid values: json, text
	Format string `yaml:"format"`
	// Output sets the output destination. Valid values: stdout, stderr, or a file path
	Output string `yaml:"output"`
	// AddSource adds source code position to log records
	AddSource bool `yaml:"add_source"`
	// CaptureLevel is the minimum level kept in memory. Empty disables capture.
	CaptureLevel string `yaml:"capture_level"`
	// CaptureSize is how many entries are kept per subsystem.
	CaptureSize int `yaml:"capture_size"`
}

// Logger wraps slog.Logger
type Logger struct {
	*slog.Logger
	config    Config
	collector *LogCollector
}

// New creates a new logger with the given configuration.
func New(cfg Config) (*Logger, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}

	cfg.setDefaults()

	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	writer, err := getWriter(cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to get output writer: %w", err)
	}

	handler, err := newHandler(writer, cfg.Format, level, cfg.AddSource)
	if err != nil {
		return nil, err
	}

	l := &Logger{config: cfg}
	if cfg.CaptureLevel != "" {
		captureLevel, err := parseLevel(cfg.CaptureLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid capture level %q: %w", cfg.CaptureLevel, err)
		}
		l.collector = NewLogCollector(cfg.CaptureSize)
		handler = NewCapturingHandler(handler, l.collector, captureLevel)
	}
	l.Logger = slog.New(handler)
	return l, nil
}

// Collector returns the in-memory collector, or nil when capture is off.
func (l *Logger) Collector() *LogCollector {
	return l.collector
}

func newHandler(w io.Writer, format string, level slog.Level, addSource bool) (slog.Handler, error) {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Loop timing needs sub-second timestamps.
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339Nano))
			}
			return a
		},
	}

	switch format {
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	case "text":
		return slog.NewTextHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
}

// validate checks if the configuration is valid.
func (cfg *Config) validate() error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if cfg.Level != "" && !slices.Contains(validLevels, cfg.Level) {
		return fmt.Errorf("level must be one of: %s", strings.Join(validLevels, ", "))
	}
	if cfg.CaptureLevel != "" && !slices.Contains(validLevels, cfg.CaptureLevel) {
		return fmt.Errorf("capture level must be one of: %s", strings.Join(validLevels, ", "))
	}

	validFormats := []string{"json", "text"}
	if cfg.Format != "" && !slices.Contains(validFormats, cfg.Format) {
		return fmt.Errorf("format must be one of: %s", strings.Join(validFormats, ", "))
	}

	if cfg.CaptureSize < 0 {
		return fmt.Errorf("capture size must not be negative")
	}
	return nil
}

// setDefaults sets default values for unset configuration fields.
func (cfg *Config) setDefaults() {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
	if cfg.CaptureSize == 0 {
		cfg.CaptureSize = defaultCaptureSize
	}
}

// parseLevel converts a string level to slog.Level.
func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown level: %s", level)
	}
}

// getWriter returns an io.Writer for the given output configuration.
func getWriter(output string) (io.Writer, error) {
	switch output {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %q: %w", output, err)
		}
		return file, nil
	}
}
