// Package types provides shared types for the server package and its subpackages.
package types

import (
	"fmt"
	"time"

	"github.com/xero1425/xerobot/buildinfo"
)

// ServerProperties holds metadata about the running robot process.
type ServerProperties struct {
	Build     buildinfo.Properties `json:"build"`
	StartedAt time.Time            `json:"started_at"`
	Hostname  string               `json:"hostname"`
	// Robot is the name of the root subsystem.
	Robot string `json:"robot"`
}

// Files a reload reads, in order.
const (
	ReloadConfig   = "config"
	ReloadSettings = "settings"
)

// ReloadResult describes what a successful reload read from disk.
type ReloadResult struct {
	ConfigPath string `json:"config_path"`
	// SettingsPath is empty when the robot runs on its built-in settings,
	// which are never reloaded.
	SettingsPath string    `json:"settings_path,omitempty"`
	SettingKeys  int       `json:"setting_keys,omitempty"`
	ReloadedAt   time.Time `json:"reloaded_at"`
}

// ReloadError names the file that stopped a reload. Nothing from a failed
// reload is applied.
type ReloadError struct {
	File string // ReloadConfig or ReloadSettings
	Path string
	Err  error
}

func (e *ReloadError) Error() string {
	return fmt.Sprintf("reloading %s %s: %v", e.File, e.Path, e.Err)
}

func (e *ReloadError) Unwrap() error {
	return e.Err
}
