package step

import (
	"sync"

	"github.com/nomis52/goharness/harness"
)

// StatusHandler stores step status messages by step ID.
// This is the shared storage that all status lines write to.
// Similar to slog.Handler, it receives and stores status updates.
type StatusHandler struct {
	statuses map[harness.StepID]string
	mu       sync.RWMutex
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler() *StatusHandler {
	return &StatusHandler{
		statuses: make(map[harness.StepID]string),
	}
}

// Set updates the status for a specific step ID.
// This is called by StatusLine instances.
func (sh *StatusHandler) Set(stepID harness.StepID, status string) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.statuses[stepID] = status
}

// Get returns the status for a specific step ID.
func (sh *StatusHandler) Get(stepID harness.StepID) string {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.statuses[stepID]
}

// All returns a copy of all step statuses.
// The run tracker snapshots these into the step execution records.
func (sh *StatusHandler) All() map[harness.StepID]string {
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	// Return a copy to avoid concurrent map access
	copy := make(map[harness.StepID]string, len(sh.statuses))
	for k, v := range sh.statuses {
		copy[k] = v
	}
	return copy
}
