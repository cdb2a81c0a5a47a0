// Package handlers provides HTTP handlers for the diagnostics server.
//
// Each handler is in its own file and implements http.Handler.
// Handlers use interfaces to access server dependencies, avoiding
// circular imports.
package handlers

import (
	"github.com/xero1425/xerobot/auto"
	"github.com/xero1425/xerobot/config"
	"github.com/xero1425/xerobot/history"
	"github.com/xero1425/xerobot/logging"
	"github.com/xero1425/xerobot/robot"
	"github.com/xero1425/xerobot/server/types"
	"github.com/xero1425/xerobot/settings"
	"github.com/xero1425/xerobot/subsystem"
)

// ConfigProvider provides access to the current configuration and the
// robot settings it points at. Settings may return nil.
type ConfigProvider interface {
	Config() *config.Config
	Settings() *settings.Settings
}

// Reloader rereads the config and settings files.
type Reloader interface {
	Reload() (types.ReloadResult, error)
}

// SnapshotProvider provides the latest robot snapshot.
type SnapshotProvider interface {
	Snapshot() (robot.Snapshot, bool)
}

// AutoModeProvider lists the autonomous routines and the selected index.
type AutoModeProvider interface {
	AutoModes() []auto.ModeInfo
	SelectedAutoMode() int
}

// AutoModeSelector changes the autonomous routine selection.
type AutoModeSelector interface {
	SelectAutoMode(index int) error
}

// ModeRequester asks the control loop to change mode.
type ModeRequester interface {
	RequestMode(mode subsystem.Mode)
}

// HistoryProvider provides access to mode period history.
type HistoryProvider interface {
	Periods() []history.Period
}

// LogProvider provides access to captured log entries.
type LogProvider interface {
	GetLogs(subsystem string) []logging.LogEntry
	GetAllLogs() map[string][]logging.LogEntry
}
