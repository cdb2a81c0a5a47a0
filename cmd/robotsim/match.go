package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/xero1425/xerobot/config"
	"github.com/xero1425/xerobot/subsystem"
)

// ModeRequester is the part of the robot the match script drives.
type ModeRequester interface {
	RequestMode(mode subsystem.Mode)
}

type phase struct {
	mode     subsystem.Mode
	duration time.Duration
}

func phases(sim config.SimConfig) []phase {
	var out []phase
	for _, p := range []phase{
		{subsystem.Disabled, sim.Disabled},
		{subsystem.Autonomous, sim.Autonomous},
		{subsystem.Teleop, sim.Teleop},
	} {
		if p.duration > 0 {
			out = append(out, p)
		}
	}
	return out
}

// playMatches walks the robot through the configured match phases and
// leaves it disabled. It returns false if ctx ended first.
func playMatches(ctx context.Context, r ModeRequester, sim config.SimConfig, logger *slog.Logger) bool {
	matches := sim.Matches
	if matches == 0 {
		matches = 1
	}
	defer r.RequestMode(subsystem.Disabled)

	for m := 1; m <= matches; m++ {
		for _, p := range phases(sim) {
			logger.Info("match phase", "match", m, "mode", p.mode, "duration", p.duration)
			r.RequestMode(p.mode)

			timer := time.NewTimer(p.duration)
			select {
			case <-ctx.Done():
				timer.Stop()
				return false
			case <-timer.C:
			}
		}
	}
	logger.Info("simulated matches complete", "matches", matches)
	return true
}
