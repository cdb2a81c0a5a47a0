package robot

import (
	"sync"
	"time"

	"github.com/xero1425/xerobot/subsystem"
)

// Snapshot is the robot state published at the end of every tick.
type Snapshot struct {
	Tick       uint64           `json:"tick"`
	Mode       string           `json:"mode"`
	CycleTime  time.Duration    `json:"cycle_time_ns"`
	Overruns   uint64           `json:"overruns"`
	AutoMode   string           `json:"auto_mode,omitempty"`
	AutoIndex  *int             `json:"auto_index,omitempty"`
	AutoActive bool             `json:"auto_running"`
	Subsystems subsystem.Status `json:"subsystems"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// SnapshotStore hands the latest Snapshot from the loop goroutine to
// readers such as the diagnostics server.
type SnapshotStore struct {
	mu   sync.RWMutex
	snap Snapshot
	ok   bool
}

// NewSnapshotStore returns an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Set replaces the stored snapshot.
func (s *SnapshotStore) Set(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	s.ok = true
}

// Get returns the latest snapshot, and false before the first tick.
// The subsystem tree is rebuilt every tick, so the value is never shared
// with the loop.
func (s *SnapshotStore) Get() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.ok
}
