package hostcheck

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nomis52/goharness/harness"
	"github.com/nomis52/goharness/step"
)

// defaultCommands are the inspection commands run when none are configured.
var defaultCommands = []string{"uname -a", "uptime", "df -h"}

// HostInfo runs read-only inspection commands on the device host and records
// their output for later assertions. A non-zero remote exit is an ordinary
// step error.
type HostInfo struct {
	// Dependencies
	Connect    *ConnectHost
	Dialer     Dialer
	Logger     *slog.Logger
	StatusLine *step.StatusLine

	// Commands are the remote commands to run. Defaults to defaultCommands.
	Commands []string

	mu      sync.Mutex
	outputs map[string]string
}

// Init performs structural validation.
func (s *HostInfo) Init() error {
	if s.Dialer == nil {
		return fmt.Errorf("dialer not configured")
	}
	if len(s.Commands) == 0 {
		s.Commands = defaultCommands
	}
	return nil
}

// Execute runs each command over a fresh connection and records the output.
func (s *HostInfo) Execute(ctx context.Context) error {
	return step.CaptureFailure(s.StatusLine, func() error {
		conn, err := s.Dialer.Dial()
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", s.Dialer.Address(), err)
		}
		defer conn.Close()

		for _, command := range s.Commands {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("cancelled: %w", err)
			}

			s.StatusLine.Set("running " + command)
			stdout, stderr, err := conn.Run(command)
			if err != nil {
				s.Logger.Error("command failed",
					"command", command,
					"stderr", strings.TrimSpace(stderr),
					"error", err)
				return fmt.Errorf("%s: %w", command, err)
			}

			s.record(command, stdout)
			s.Logger.Debug("command output recorded", "command", command, "bytes", len(stdout))
		}

		s.StatusLine.Set(fmt.Sprintf("collected output from %d command(s)", len(s.Commands)))
		return nil
	})
}

func (s *HostInfo) record(command, output string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outputs == nil {
		s.outputs = make(map[string]string)
	}
	s.outputs[command] = output
}

// Output returns the recorded output for a command.
func (s *HostInfo) Output(command string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	output, ok := s.outputs[command]
	return output, ok
}

// Facts returns a copy of all recorded command outputs keyed by command.
// It satisfies the fact source interface used by script checks.
func (s *HostInfo) Facts() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	facts := make(map[string]string, len(s.outputs))
	for command, output := range s.outputs {
		facts[command] = output
	}
	return facts
}

var _ harness.Step = (*HostInfo)(nil)
