package demo

import (
	"context"
	"log/slog"

	"github.com/nomis52/goharness/harness"
	"github.com/nomis52/goharness/step"
)

// Report is the third demo step. It runs after Diagnostics completes.
type Report struct {
	Logger     *slog.Logger
	StatusLine *step.StatusLine
	_          *Diagnostics // Unnamed dependency ensures Diagnostics runs first
}

// Init performs structural validation.
func (s *Report) Init() error {
	return nil
}

// Execute performs the step work.
func (s *Report) Execute(ctx context.Context) error {
	return step.CaptureFailure(s.StatusLine, func() error {
		s.Logger.Info("collating demo report")

		s.StatusLine.Set("collating results")
		if err := pause(ctx); err != nil {
			return err
		}

		s.StatusLine.Set("formatting report")
		if err := pause(ctx); err != nil {
			return err
		}

		s.StatusLine.Set("report ready")
		return nil
	})
}

var _ harness.Step = (*Report)(nil)
