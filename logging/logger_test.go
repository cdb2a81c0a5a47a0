package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{name: "zero config uses defaults", config: Config{}},
		{name: "json to stdout", config: Config{Level: "info", Format: "json", Output: "stdout"}},
		{name: "quiet console with debug capture", config: Config{Level: "error", CaptureLevel: "debug"}},
		{name: "unknown level", config: Config{Level: "trace"}, wantErr: "level must be one of"},
		{name: "unknown format", config: Config{Format: "xml"}, wantErr: "format must be one of"},
		{name: "unknown capture level", config: Config{CaptureLevel: "verbose"}, wantErr: "capture level"},
		{name: "negative capture size", config: Config{CaptureLevel: "info", CaptureSize: -1}, wantErr: "capture size"},
		{name: "unwritable output", config: Config{Output: filepath.Join(t.TempDir(), "missing", "robot.log")}, wantErr: "output writer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger.Logger)
		})
	}
}

func TestSetDefaults(t *testing.T) {
	cfg := Config{}
	cfg.setDefaults()

	assert.Equal(t, Config{
		Level:       "info",
		Format:      "text",
		Output:      "stderr",
		CaptureSize: defaultCaptureSize,
	}, cfg)

	cfg = Config{Level: "debug", Format: "json", Output: "robot.log", CaptureSize: 5}
	cfg.setDefaults()
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, 5, cfg.CaptureSize)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"Error": slog.LevelError,
	} {
		got, err := parseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := parseLevel("verbose")
	assert.Error(t, err)
}

func TestNew_FileOutputHasSubsecondTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robot.log")
	logger, err := New(Config{Level: "debug", Format: "text", Output: path})
	require.NoError(t, err)

	logger.Debug("tick overrun", "elapsed", "25ms")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`time=\S+T\S+\.\d+`), string(data))
	assert.Contains(t, string(data), `msg="tick overrun"`)
}

func TestNew_Collector(t *testing.T) {
	logger, err := New(Config{Output: "stderr"})
	require.NoError(t, err)
	assert.Nil(t, logger.Collector(), "capture is off by default")

	logger, err = New(Config{Level: "error", Output: "stderr", CaptureLevel: "info", CaptureSize: 2})
	require.NoError(t, err)
	require.NotNil(t, logger.Collector())

	arm := logger.With(SubsystemKey, "arm")
	arm.Info("one")
	arm.Info("two")
	arm.Warn("three")
	arm.Debug("not captured")
	logger.Info("mode change", "mode", "teleop")

	logs := logger.Collector().GetLogs("arm")
	require.Len(t, logs, 2)
	assert.Equal(t, "two", logs[0].Message)
	assert.Equal(t, "three", logs[1].Message)

	global := logger.Collector().GetLogs(GlobalKey)
	require.Len(t, global, 1)
	assert.Equal(t, "teleop", global[0].Attributes["mode"])
}
