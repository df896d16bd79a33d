package handlers

import (
	"net/http"
	"time"

	"github.com/nomis52/goharness/server/runner"
	"github.com/nomis52/goharness/server/types"
)

// NextRunResponse is the JSON response for the next scheduled run.
type NextRunResponse struct {
	Scheduled bool       `json:"scheduled"`
	NextRun   *time.Time `json:"next_run,omitempty"`
}

// APIStatusResponse is the consolidated response for /api/status.
type APIStatusResponse struct {
	Server  types.ServerProperties `json:"server"`
	Run     runner.RunStatus       `json:"run"` // Includes StepExecutions with Status field
	NextRun NextRunResponse        `json:"next_run"`
	Suites  []string               `json:"suites"`
}

// APIStatusProvider aggregates all the providers needed for the status endpoint.
type APIStatusProvider interface {
	ServerProperties() types.ServerProperties
	Status() runner.RunStatus
	NextRun() *time.Time
	AvailableSuites() []string
}

// APIStatusHandler handles requests for the consolidated status endpoint.
type APIStatusHandler struct {
	provider APIStatusProvider
}

// NewAPIStatusHandler creates a new APIStatusHandler.
func NewAPIStatusHandler(provider APIStatusProvider) *APIStatusHandler {
	return &APIStatusHandler{
		provider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *APIStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Get run status (includes live step executions with logs and status messages)
	runStatus := h.provider.Status()

	// Get next scheduled run, if cron triggers are configured
	nextRun := h.provider.NextRun()
	nextRunResp := NextRunResponse{
		Scheduled: nextRun != nil,
		NextRun:   nextRun,
	}

	resp := APIStatusResponse{
		Server:  h.provider.ServerProperties(),
		Run:     runStatus,
		NextRun: nextRunResp,
		Suites:  h.provider.AvailableSuites(),
	}

	writeJSON(w, http.StatusOK, resp)
}
