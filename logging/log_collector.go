package logging

import (
	"sort"
	"sync"
	"time"
)

// LogEntry represents a single log record with structured data.
type LogEntry struct {
	Time       time.Time              `json:"time"`
	Level      string                 `json:"level"` // "DEBUG", "INFO", "WARN", "ERROR"
	Message    string                 `json:"message"`
	Attributes map[string]interface{} `json:"attributes"`
}

// LogCollector keeps the most recent entries per subsystem. It is written
// from the loop goroutine and read by the diagnostics server.
type LogCollector struct {
	mu   sync.RWMutex
	size int
	logs map[string][]LogEntry // subsystem -> newest last
}

// NewLogCollector creates a collector keeping up to size entries per
// subsystem. A non-positive size keeps the default.
func NewLogCollector(size int) *LogCollector {
	if size <= 0 {
		size = defaultCaptureSize
	}
	return &LogCollector{
		size: size,
		logs: make(map[string][]LogEntry),
	}
}

// AddLog adds an entry, dropping the oldest one for that subsystem when full.
func (c *LogCollector) AddLog(subsystem string, entry LogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	logs := append(c.logs[subsystem], entry)
	if len(logs) > c.size {
		logs = append(logs[:0:0], logs[len(logs)-c.size:]...)
	}
	c.logs[subsystem] = logs
}

// GetLogs returns a copy of the entries for one subsystem, oldest first.
func (c *LogCollector) GetLogs(subsystem string) []LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	logs, exists := c.logs[subsystem]
	if !exists {
		return nil
	}

	result := make([]LogEntry, len(logs))
	copy(result, logs)
	return result
}

// GetAllLogs returns a copy of every subsystem's entries.
func (c *LogCollector) GetAllLogs() map[string][]LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string][]LogEntry, len(c.logs))
	for subsystem, logs := range c.logs {
		logsCopy := make([]LogEntry, len(logs))
		copy(logsCopy, logs)
		result[subsystem] = logsCopy
	}

	return result
}

// Keys returns the subsystems that have entries, sorted.
func (c *LogCollector) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.logs))
	for k := range c.logs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clear removes all stored logs.
func (c *LogCollector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logs = make(map[string][]LogEntry)
}
