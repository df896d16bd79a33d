package harness

import (
	"context"
	"time"

	"github.com/nomis52/goharness/catcher"
)

// Step represents a single unit of work run by the orchestrator.
//
// IMPLEMENTATION CONTRACT:
// - Init() is called after all dependency/config injection but before Execute()
// - Use Init() to validate configuration and dependencies are properly set
// - Execute() performs the actual work. Return nil for success, an error for
//   an expected failure. A panic raised by Execute() is intercepted by the
//   engine and recorded on the step's Result; it does not stop other steps.
// - Steps should handle context cancellation gracefully
// - Dependencies are automatically injected into struct pointer fields
type Step interface {
	// Init can be used to validate dependencies.
	// Init() is called after dependency injection but before Execute().
	// Return an error if configuration or dependencies are invalid.
	Init() error

	// Execute performs the step's work.
	// Return nil for success, or an error describing the failure.
	// Should handle context cancellation appropriately.
	Execute(ctx context.Context) error
}

// Result contains the outcome of a step execution.
//
// LIFECYCLE:
// - Created in NotStarted state when the step is added via AddStep()
// - Progresses through states during Execute(): NotStarted -> Pending ->
//   Running -> (Completed|Skipped|Panicked)
// - Final state persists after Execute() completes
// - Thread-safe access via orchestrator result methods
type Result struct {
	// State indicates the current execution state.
	State StepState

	// Error holds the error returned by the step's Execute() method, or for
	// Skipped steps the reason they were skipped. nil for success and for
	// Panicked steps.
	Error error

	// Panic holds the intercepted panic for Panicked steps, nil otherwise.
	Panic *catcher.Recovered

	// StartTime is when Execute() began. Zero if the step never ran.
	StartTime time.Time

	// EndTime is when Execute() returned or panicked. Zero if the step
	// never ran or is still running.
	EndTime time.Time
}

// IsSuccess returns true if the step completed successfully.
//
// SUCCESS CRITERIA:
// - State must be Completed (the step actually ran to completion)
// - Error must be nil
//
// Skipped and Panicked steps are never successful.
func (r *Result) IsSuccess() bool {
	return r.State == Completed && r.Error == nil
}

// FailureMessage renders the step's failure as a single line, whichever
// channel it arrived on. Empty when the step has not failed.
func (r *Result) FailureMessage() string {
	switch {
	case r.Panic != nil:
		return r.Panic.String()
	case r.Error != nil:
		return r.Error.Error()
	default:
		return ""
	}
}

// Duration returns how long Execute() ran, or zero if the step never ran.
func (r *Result) Duration() time.Duration {
	if r.StartTime.IsZero() || r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}
