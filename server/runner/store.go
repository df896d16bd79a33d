package runner

import "errors"

// ErrRunNotFound is returned when a run ID has no stored record.
var ErrRunNotFound = errors.New("run not found")

// Store manages persistence of run history.
// Summaries and step executions are stored together but queried separately:
// history listings only need summaries, while the per-run log view needs the
// full step records.
type Store interface {
	// History returns the summaries of all stored runs, most recent first.
	History() []RunSummary

	// Logs returns the step executions for a specific run.
	// Returns ErrRunNotFound if the run is not stored.
	Logs(id string) ([]StepExecution, error)

	// Save persists a completed run.
	Save(summary RunSummary, steps []StepExecution) error
}
