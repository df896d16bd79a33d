package logging

import (
	"sync"
	"time"
)

// LogEntry represents a single log record with structured data.
type LogEntry struct {
	Time       time.Time              `json:"time"`
	Level      string                 `json:"level"` // "DEBUG", "INFO", "WARN", "ERROR"
	Message    string                 `json:"message"`
	Attributes map[string]interface{} `json:"attributes"` // Structured fields
}

// LogCollector provides thread-safe storage for step logs.
type LogCollector struct {
	mu   sync.RWMutex
	logs map[string][]LogEntry // stepID -> log entries
}

// NewLogCollector creates a new LogCollector.
func NewLogCollector() *LogCollector {
	return &LogCollector{
		logs: make(map[string][]LogEntry),
	}
}

// AddLog adds a log entry for the specified step (thread-safe).
func (c *LogCollector) AddLog(stepID string, entry LogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logs[stepID] = append(c.logs[stepID], entry)
}

// GetLogs retrieves all log entries for a specific step (thread-safe).
func (c *LogCollector) GetLogs(stepID string) []LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	logs, exists := c.logs[stepID]
	if !exists {
		return nil
	}

	// Return a copy to prevent external modification
	result := make([]LogEntry, len(logs))
	copy(result, logs)
	return result
}

// GetAllLogs returns all logs grouped by step ID (thread-safe).
// Returns a copy of the internal map to prevent external modification.
func (c *LogCollector) GetAllLogs() map[string][]LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string][]LogEntry, len(c.logs))
	for stepID, logs := range c.logs {
		logsCopy := make([]LogEntry, len(logs))
		copy(logsCopy, logs)
		result[stepID] = logsCopy
	}

	return result
}

// Clear resets the log collector, removing all stored logs (thread-safe).
func (c *LogCollector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logs = make(map[string][]LogEntry)
}
