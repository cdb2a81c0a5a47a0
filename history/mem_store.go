package history

import (
	"errors"
	"sync"
)

// ErrNoStartTime is returned when saving a period that never started.
var ErrNoStartTime = errors.New("cannot save period without start time")

// MemoryStore keeps period history in memory only.
type MemoryStore struct {
	periods  []Period
	maxCount int
	mu       sync.Mutex
}

// NewMemoryStore creates a store holding at most maxCount periods. A
// maxCount of zero or less keeps everything.
func NewMemoryStore(maxCount int) *MemoryStore {
	return &MemoryStore{
		periods:  make([]Period, 0),
		maxCount: maxCount,
	}
}

// Periods returns a copy of the stored periods.
func (s *MemoryStore) Periods() []Period {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Period, len(s.periods))
	copy(result, s.periods)
	return result
}

// Save stores a period in memory.
func (s *MemoryStore) Save(p Period) error {
	if p.StartedAt.IsZero() {
		return ErrNoStartTime
	}
	if p.ID == "" {
		p.ID = p.CalculateID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Prepend to keep most recent first
	s.periods = append([]Period{p}, s.periods...)
	if s.maxCount > 0 && len(s.periods) > s.maxCount {
		s.periods = s.periods[:s.maxCount]
	}
	return nil
}
