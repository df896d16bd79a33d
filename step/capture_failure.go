package step

import (
	"github.com/nomis52/goharness/catcher"
)

// CaptureFailure wraps an Execute function and captures any failures to the status line.
// If the function returns an error, it's prefixed with ❌ and set as the status.
// If the function panics, the panic is intercepted, prefixed with 💥, set as the
// status, and returned as an error. Callers never see the panic unwind.
//
// Usage in steps:
//
//	func (s *MyStep) Execute(ctx context.Context) error {
//	    return step.CaptureFailure(s.StatusLine, func() error {
//	        s.StatusLine.Set("doing work")
//	        // ... do actual work
//	        return nil
//	    })
//	}
func CaptureFailure(statusLine *StatusLine, f func() error) error {
	var err error
	recovered := catcher.Catch(func() {
		err = f()
	})
	if recovered != nil {
		if statusLine != nil {
			statusLine.Set("💥 " + recovered.String())
		}
		return recovered.AsError()
	}
	if err != nil && statusLine != nil {
		statusLine.Set("❌ " + err.Error())
	}
	return err
}
