// Package step provides step-scoped status reporting for harness steps.
//
// The package implements a status line mechanism that allows steps to communicate
// their current progress via unstructured text messages. Status messages are both
// logged and collected for live run-status reporting.
//
// # Architecture
//
// The package follows the handler/writer pattern similar to the standard library's
// log/slog package:
//
//   - StatusLine: Writes status messages (analogous to slog.Logger)
//   - StatusHandler: Receives and stores status updates (analogous to slog.Handler)
//
// # Usage
//
// Steps receive a StatusLine via dependency injection and use it to report
// their current state:
//
//	type ConnectHost struct {
//	    StatusLine *step.StatusLine
//	}
//
//	func (s *ConnectHost) Execute(ctx context.Context) error {
//	    s.StatusLine.Set("resolving host")
//	    // ... perform work
//	    s.StatusLine.Set("opening connection")
//	    // ... more work
//	    return nil
//	}
//
// Suite constructors create a StatusHandler and provide a factory to the
// orchestrator that creates StatusLines for each step:
//
//	handler := step.NewStatusHandler()
//	harness.Provide(o, func(id harness.StepID) *step.StatusLine {
//	    return step.NewStatusLine(id, logger, handler)
//	})
//
// The StatusHandler can be queried for current status of all steps:
//
//	statuses := handler.All() // Returns map[harness.StepID]string
//
// # Failure Capturing
//
// The CaptureFailure helper function automatically updates status on failure:
//
//	return step.CaptureFailure(s.StatusLine, func() error {
//	    // ... work that might fail or panic
//	    return someOperation()
//	})
//
// If the function returns an error, the status line is updated with the error
// message. If the function panics, the panic is intercepted, reported on the
// status line, and returned as an error so the caller never unwinds.
package step
