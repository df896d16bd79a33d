package handlers

import (
	"net/http"
)

// AvailableSuitesResponse is the JSON response for /api/suites.
type AvailableSuitesResponse struct {
	Suites []string `json:"suites"`
}

// AvailableSuitesHandler handles requests for the available suites endpoint.
type AvailableSuitesHandler struct {
	provider SuitesProvider
}

// NewAvailableSuitesHandler creates a new AvailableSuitesHandler.
func NewAvailableSuitesHandler(provider SuitesProvider) *AvailableSuitesHandler {
	return &AvailableSuitesHandler{
		provider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *AvailableSuitesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := AvailableSuitesResponse{
		Suites: h.provider.AvailableSuites(),
	}

	writeJSON(w, http.StatusOK, resp)
}
