package cron

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/xero1425/xerobot/robot"
	"github.com/xero1425/xerobot/subsystem"
)

// Diagnostics job names.
const (
	// JobDump logs the full action tree of every busy subsystem.
	JobDump = "dump"
	// JobSummary logs one line with the loop state.
	JobSummary = "summary"
)

// ErrNoSnapshot is returned when the loop has not published yet.
var ErrNoSnapshot = errors.New("no robot snapshot yet")

// AvailableJobs returns the job names Diagnostics understands.
func AvailableJobs() map[string]bool {
	return map[string]bool{
		JobDump:    true,
		JobSummary: true,
	}
}

// SnapshotSource provides the latest robot snapshot.
type SnapshotSource interface {
	Get() (robot.Snapshot, bool)
}

// Diagnostics implements Runnable by logging what the robot is doing.
type Diagnostics struct {
	snapshots SnapshotSource
	logger    *slog.Logger
}

// NewDiagnostics creates the diagnostics runnable.
func NewDiagnostics(snapshots SnapshotSource, logger *slog.Logger) *Diagnostics {
	return &Diagnostics{
		snapshots: snapshots,
		logger:    logger.With("component", "diagnostics"),
	}
}

// Run executes the named jobs in order against one snapshot.
func (d *Diagnostics) Run(jobs []string) error {
	snap, ok := d.snapshots.Get()
	if !ok {
		return ErrNoSnapshot
	}

	var errs []error
	for _, job := range jobs {
		switch job {
		case JobDump:
			d.dump(snap)
		case JobSummary:
			d.summary(snap)
		default:
			errs = append(errs, fmt.Errorf("unknown job %q", job))
		}
	}
	return errors.Join(errs...)
}

func (d *Diagnostics) dump(snap robot.Snapshot) {
	busy := 0
	walkStatus(snap.Subsystems, func(st subsystem.Status) {
		if st.Action == "" || st.RunningDefault {
			return
		}
		busy++
		d.logger.Info("subsystem action",
			"tick", snap.Tick,
			"subsystem", st.Path,
			"action", st.Action,
		)
	})
	if busy == 0 {
		d.logger.Info("no subsystem is busy", "tick", snap.Tick, "mode", snap.Mode)
	}
}

func (d *Diagnostics) summary(snap robot.Snapshot) {
	d.logger.Info("robot summary",
		"tick", snap.Tick,
		"mode", snap.Mode,
		"cycle_time", snap.CycleTime,
		"overruns", snap.Overruns,
		"auto_mode", snap.AutoMode,
		"auto_running", snap.AutoActive,
	)
}

func walkStatus(st subsystem.Status, fn func(subsystem.Status)) {
	fn(st)
	for _, c := range st.Children {
		walkStatus(c, fn)
	}
}
