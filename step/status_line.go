package step

import (
	"log/slog"

	"github.com/nomis52/goharness/harness"
)

// StatusLine logs status with step context AND updates the shared handler.
// This struct is created by factories during dependency injection and bound to a specific step.
// Steps use this to report their status with a clean API: statusLine.Set("message")
type StatusLine struct {
	logger  *slog.Logger
	handler *StatusHandler
	stepID  harness.StepID
}

// NewStatusLine creates a status line bound to a step ID.
// Used by factory functions registered with the orchestrator.
// The handler parameter is optional - if nil, status updates are only logged.
func NewStatusLine(stepID harness.StepID, logger *slog.Logger, handler *StatusHandler) *StatusLine {
	return &StatusLine{
		logger:  logger,
		handler: handler,
		stepID:  stepID,
	}
}

// Set logs the status with step context and updates the handler if present.
// Called by steps to report their current status.
func (sl *StatusLine) Set(status string) {
	sl.logger.Info(status, "step", sl.stepID.String())
	if sl.handler != nil {
		sl.handler.Set(sl.stepID, status)
	}
}
