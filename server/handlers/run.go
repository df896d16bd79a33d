package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/nomis52/goharness/server/runner"
)

// RunRequest defines the request body for POST /run.
type RunRequest struct {
	Suites []string `json:"suites"`
}

// RunResponse is returned when a run was accepted.
type RunResponse struct {
	ID string `json:"id"`
}

// RunHandler handles requests to trigger a suite run.
type RunHandler struct {
	runner SuiteRunner
}

// NewRunHandler creates a new RunHandler.
func NewRunHandler(r SuiteRunner) *RunHandler {
	return &RunHandler{
		runner: r,
	}
}

// ServeHTTP implements http.Handler.
func (h *RunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	if len(req.Suites) == 0 {
		writeError(w, http.StatusBadRequest, "suites array cannot be empty")
		return
	}

	// Check for duplicate suites
	seen := make(map[string]bool, len(req.Suites))
	for _, name := range req.Suites {
		if seen[name] {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("duplicate suite %q in request", name))
			return
		}
		seen[name] = true
	}

	id, err := h.runner.Run(req.Suites)
	if err != nil {
		if errors.Is(err, runner.ErrRunInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		// Unknown suite or validation error
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, RunResponse{ID: id})
}
