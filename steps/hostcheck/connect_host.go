package hostcheck

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nomis52/goharness/harness"
	"github.com/nomis52/goharness/step"
)

// ConnectHost verifies the device host accepts SSH connections.
type ConnectHost struct {
	// Dependencies
	Dialer     Dialer
	Logger     *slog.Logger
	StatusLine *step.StatusLine
}

// Init performs structural validation.
func (s *ConnectHost) Init() error {
	if s.Dialer == nil {
		return fmt.Errorf("dialer not configured")
	}
	return nil
}

// Execute dials the host and sends a keepalive probe.
func (s *ConnectHost) Execute(ctx context.Context) error {
	return step.CaptureFailure(s.StatusLine, func() error {
		s.StatusLine.Set("dialing " + s.Dialer.Address())

		conn, err := s.Dialer.Dial()
		if err != nil {
			s.Logger.Error("failed to connect to host", "address", s.Dialer.Address(), "error", err)
			return fmt.Errorf("failed to connect to %s: %w", s.Dialer.Address(), err)
		}
		defer conn.Close()

		if err := conn.Ping(); err != nil {
			return fmt.Errorf("keepalive probe failed: %w", err)
		}

		s.StatusLine.Set("host is reachable")
		return nil
	})
}

var _ harness.Step = (*ConnectHost)(nil)
