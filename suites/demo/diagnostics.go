package demo

import (
	"context"
	"log/slog"

	"github.com/nomis52/goharness/harness"
	"github.com/nomis52/goharness/step"
)

// Diagnostics is the second demo step. It runs after Inventory completes.
type Diagnostics struct {
	Logger     *slog.Logger
	StatusLine *step.StatusLine
	_          *Inventory // Unnamed dependency ensures Inventory runs first
}

// Init performs structural validation.
func (s *Diagnostics) Init() error {
	return nil
}

// Execute performs the step work.
func (s *Diagnostics) Execute(ctx context.Context) error {
	return step.CaptureFailure(s.StatusLine, func() error {
		s.Logger.Info("starting diagnostics pass")

		s.StatusLine.Set("running diagnostics on 3 devices")
		if err := pause(ctx); err != nil {
			return err
		}

		s.StatusLine.Set("2 of 3 devices checked")
		if err := pause(ctx); err != nil {
			return err
		}

		s.StatusLine.Set("diagnostics clean")
		return nil
	})
}

var _ harness.Step = (*Diagnostics)(nil)
