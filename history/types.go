// Package history records one entry per robot mode period: how long the
// robot spent enabled in a mode, how the control loop kept up, and which
// subsystems failed along the way.
package history

import (
	"fmt"
	"time"
)

// Failure is one failure contained at a subsystem boundary.
type Failure struct {
	Subsystem string `json:"subsystem"`
	Phase     string `json:"phase"`
	Tick      uint64 `json:"tick"`
}

// Period describes the time between two mode transitions.
type Period struct {
	// ID identifies the period. Filled in by the store when empty.
	ID string `json:"id"`
	// Mode is the robot mode for the whole period.
	Mode string `json:"mode"`
	// AutoMode is the autonomous routine that ran, if any.
	AutoMode  string    `json:"auto_mode,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	// Ticks counts control loop iterations during the period.
	Ticks uint64 `json:"ticks"`
	// Overruns counts iterations that took more than twice the loop period.
	Overruns uint64    `json:"overruns"`
	Failures []Failure `json:"failures,omitempty"`
}

// Duration returns how long the period lasted.
func (p Period) Duration() time.Duration {
	if p.EndedAt.Before(p.StartedAt) {
		return 0
	}
	return p.EndedAt.Sub(p.StartedAt)
}

// CalculateID derives a stable ID from the start time and mode.
func (p Period) CalculateID() string {
	return fmt.Sprintf("%s-%s", p.StartedAt.UTC().Format("20060102T150405.000"), p.Mode)
}

// Store keeps period history, most recent first.
type Store interface {
	// Periods returns the stored periods, most recent first.
	Periods() []Period
	// Save records a finished period.
	Save(Period) error
}
