package demo

import (
	"context"
	"log/slog"

	"github.com/nomis52/goharness/harness"
	"github.com/nomis52/goharness/step"
)

// Inventory is the first demo step. It simulates device discovery with
// status updates and sleeps.
type Inventory struct {
	Logger     *slog.Logger
	StatusLine *step.StatusLine
}

// Init performs structural validation.
func (s *Inventory) Init() error {
	return nil
}

// Execute performs the step work.
func (s *Inventory) Execute(ctx context.Context) error {
	return step.CaptureFailure(s.StatusLine, func() error {
		s.Logger.Info("starting inventory scan")

		s.StatusLine.Set("discovering attached devices")
		if err := pause(ctx); err != nil {
			return err
		}

		s.StatusLine.Set("found 3 devices")
		if err := pause(ctx); err != nil {
			return err
		}

		s.StatusLine.Set("inventory complete")
		return nil
	})
}

var _ harness.Step = (*Inventory)(nil)
