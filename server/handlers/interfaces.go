// Package handlers provides HTTP handlers for the goharness server.
//
// Each handler is in its own file and implements http.Handler.
// Handlers use interfaces to access server dependencies, avoiding
// circular imports.
package handlers

import (
	"github.com/nomis52/goharness/config"
	"github.com/nomis52/goharness/server/runner"
)

// ConfigProvider provides access to the current harness configuration.
type ConfigProvider interface {
	Config() *config.Config
}

// Reloader reloads state from its backing source.
type Reloader interface {
	Reload() error
}

// SuiteRunner starts suite runs in the background.
type SuiteRunner interface {
	// Run starts a run of the named suites and returns its ID. Returns
	// suites.ErrUnknownSuite for unregistered names and
	// runner.ErrRunInProgress if a run is already in progress.
	Run(suites []string) (string, error)
}

// RunStatusProvider provides the current run status.
type RunStatusProvider interface {
	Status() runner.RunStatus
}

// HistoryProvider provides access to completed runs.
type HistoryProvider interface {
	// History returns completed run summaries, most recent first.
	History() []runner.RunSummary

	// GetLogs returns the step executions recorded for a completed run.
	// Returns runner.ErrRunNotFound if the run ID is unknown.
	GetLogs(id string) ([]runner.StepExecution, error)
}

// SuitesProvider lists the suites the server can run.
type SuitesProvider interface {
	// AvailableSuites returns registered suite names in sorted order.
	AvailableSuites() []string
}
