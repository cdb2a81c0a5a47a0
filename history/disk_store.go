package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DiskStore persists period history to disk as one JSON file per period.
type DiskStore struct {
	dir      string
	logger   *slog.Logger
	maxCount int
	periods  []Period // protected by mu
	mu       sync.Mutex
}

// NewDiskStore creates a new disk-backed store.
// The directory is created if it doesn't exist, and existing periods are loaded.
func NewDiskStore(dir string, maxCount int, logger *slog.Logger) (*DiskStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &DiskStore{
		dir:      dir,
		logger:   logger.With("component", "history"),
		maxCount: maxCount,
		periods:  make([]Period, 0),
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	periods, err := s.load()
	if err != nil {
		s.logger.Warn("failed to load existing periods", "error", err)
		// Continue without existing data
	} else {
		s.periods = periods
	}

	return s, nil
}

// Periods returns a copy of the loaded periods.
func (s *DiskStore) Periods() []Period {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Period, len(s.periods))
	copy(result, s.periods)
	return result
}

// Save writes the period to disk and updates the in-memory list. Files
// beyond maxCount are removed oldest first.
func (s *DiskStore) Save(p Period) error {
	if p.StartedAt.IsZero() {
		return ErrNoStartTime
	}
	if p.ID == "" {
		p.ID = p.CalculateID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal period: %w", err)
	}

	path := filepath.Join(s.dir, fileName(p))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write period file: %w", err)
	}

	s.periods = append([]Period{p}, s.periods...)

	for len(s.periods) > s.maxCount {
		oldest := s.periods[len(s.periods)-1]
		s.periods = s.periods[:len(s.periods)-1]
		if err := os.Remove(filepath.Join(s.dir, fileName(oldest))); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to prune period file", "id", oldest.ID, "error", err)
		}
	}

	s.logger.Debug("saved period to disk", "path", path)
	return nil
}

// Reload re-reads all periods from disk.
func (s *DiskStore) Reload() error {
	periods, err := s.load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.periods = periods
	return nil
}

func (s *DiskStore) load() ([]Period, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	periods := make([]Period, 0, len(files))
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		path := filepath.Join(s.dir, file.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("failed to read period file", "file", path, "error", err)
			continue
		}

		var p Period
		if err := json.Unmarshal(data, &p); err != nil {
			s.logger.Warn("failed to parse period file", "file", path, "error", err)
			continue
		}
		if p.ID == "" {
			p.ID = p.CalculateID()
		}
		periods = append(periods, p)
	}

	// Most recent first
	sort.Slice(periods, func(i, j int) bool {
		return periods[i].StartedAt.After(periods[j].StartedAt)
	})

	if len(periods) > s.maxCount {
		periods = periods[:s.maxCount]
	}

	s.logger.Info("loaded period history from disk", "count", len(periods))
	return periods, nil
}

// fileName is the UTC start time plus the mode: 2006-01-02T15-04-05_000-teleop.json
func fileName(p Period) string {
	stamp := strings.ReplaceAll(p.StartedAt.UTC().Format("2006-01-02T15-04-05.000"), ".", "_")
	return stamp + "-" + p.Mode + ".json"
}
