package runner

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/nomis52/goharness/logging"
)

// RunState represents the current state of a run.
type RunState int

const (
	// RunStateIdle indicates no run is in progress.
	RunStateIdle RunState = iota
	// RunStateRunning indicates a run is in progress.
	RunStateRunning
)

// String returns the string representation of the run state.
func (s RunState) String() string {
	switch s {
	case RunStateIdle:
		return "idle"
	case RunStateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler.
func (s RunState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *RunState) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw {
	case "idle":
		*s = RunStateIdle
	case "running":
		*s = RunStateRunning
	default:
		return fmt.Errorf("unknown run state %q", raw)
	}
	return nil
}

// NewRunID returns a new run identifier. ULIDs are used because they sort
// chronologically as plain strings, which keeps history listings and disk
// filenames in run order.
func NewRunID() string {
	return strings.ToLower(ulid.Make().String())
}

// RunSummary identifies a run and records its outcome.
type RunSummary struct {
	// ID uniquely identifies the run.
	ID string `json:"id"`
	// Suites are the suite names the run executed.
	Suites []string `json:"suites"`
	// StartedAt is when the run started. Nil if no run has occurred.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// EndedAt is when the run ended. Nil while the run is in progress.
	EndedAt *time.Time `json:"ended_at,omitempty"`
	// Error contains the error message if the run failed. Empty on success.
	Error string `json:"error,omitempty"`
}

// StepExecution is the per-step record exposed by the API and persisted with
// completed runs.
type StepExecution struct {
	// Suite is the name of the suite the step belongs to.
	Suite string `json:"suite"`
	// Module is the import path of the package defining the step.
	Module string `json:"module"`
	// Type is the step's struct name.
	Type string `json:"type"`
	// State is the execution state (pending, running, completed, ...).
	State string `json:"state"`
	// Status is the step's last status line, if any.
	Status string `json:"status,omitempty"`
	// Error is the step's failure message, if any.
	Error string `json:"error,omitempty"`
	// Panic describes an intercepted panic, if any.
	Panic string `json:"panic,omitempty"`
	// StartTime and EndTime bound the step's Execute call.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	// Logs are the log records the step emitted while running.
	Logs []logging.LogEntry `json:"logs,omitempty"`
}

// RunStatus is the live view of the current or most recent run.
type RunStatus struct {
	// State is the runner state, independent of the summary's outcome.
	State RunState `json:"state"`
	// Run summarizes the current or last run. Zero value if no run yet.
	Run RunSummary `json:"run"`
	// StepExecutions holds per-step detail. During a run it reflects live
	// progress; after a run it holds the final records.
	StepExecutions []StepExecution `json:"step_executions,omitempty"`
}

// runRecord is the persisted form of a completed run.
type runRecord struct {
	RunSummary
	StepExecutions []StepExecution `json:"step_executions"`
}
