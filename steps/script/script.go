// Package script provides a step that evaluates JavaScript assertions
// against facts collected by earlier steps.
package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/nomis52/goharness/catcher"
	"github.com/nomis52/goharness/harness"
	"github.com/nomis52/goharness/step"
)

const defaultTimeout = 10 * time.Second

// FactSource supplies key/value facts for script evaluation.
type FactSource interface {
	Facts() map[string]string
}

// Check evaluates a JavaScript source in an embedded VM. The script sees the
// collected facts as the `facts` object and can raise an assertion failure
// with the `fail(message)` builtin. A JS exception becomes an ordinary step
// error.
type Check struct {
	// Dependencies
	Logger     *slog.Logger
	StatusLine *step.StatusLine

	// Facts supplies the variables exposed to the script. When it holds
	// another step the check runs after that step completes. May be nil.
	Facts FactSource

	// Source is the JavaScript source to evaluate.
	Source string

	// Timeout bounds script execution.
	Timeout time.Duration `harness:"scripts.timeout"`
}

// Init performs structural validation.
func (c *Check) Init() error {
	if strings.TrimSpace(c.Source) == "" {
		return fmt.Errorf("no script source configured")
	}
	return nil
}

// Execute runs the script. The VM is interrupted when the context is done or
// the timeout elapses.
func (c *Check) Execute(ctx context.Context) error {
	return step.CaptureFailure(c.StatusLine, func() error {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}

		vm := goja.New()

		facts := map[string]string{}
		if c.Facts != nil {
			facts = c.Facts.Facts()
		}
		if err := vm.Set("facts", facts); err != nil {
			return fmt.Errorf("failed to bind facts: %w", err)
		}

		if err := vm.Set("fail", func(call goja.FunctionCall) goja.Value {
			message := "assertion failed"
			if len(call.Arguments) > 0 {
				message = call.Arguments[0].String()
			}
			// Raises a JS exception that surfaces from RunString.
			panic(vm.ToValue(message))
		}); err != nil {
			return fmt.Errorf("failed to bind fail: %w", err)
		}

		if err := vm.Set("log", func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) > 0 {
				c.Logger.Info(call.Arguments[0].String(), "source", "script")
			}
			return goja.Undefined()
		}); err != nil {
			return fmt.Errorf("failed to bind log: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		c.StatusLine.Set("evaluating script")

		done := make(chan struct{})
		var runErr error
		go func() {
			defer close(done)
			recovered := catcher.Catch(func() {
				_, runErr = vm.RunString(c.Source)
			})
			if recovered != nil {
				runErr = recovered.AsError()
			}
		}()

		select {
		case <-done:
		case <-runCtx.Done():
			vm.Interrupt("deadline reached")
			<-done
			if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("script timed out after %v", timeout)
			}
			return fmt.Errorf("script cancelled: %w", runCtx.Err())
		}

		if runErr != nil {
			var jsErr *goja.Exception
			if errors.As(runErr, &jsErr) {
				return fmt.Errorf("script failed: %s", jsErr.Value().String())
			}
			return fmt.Errorf("script error: %w", runErr)
		}

		c.StatusLine.Set("script passed")
		return nil
	})
}

var _ harness.Step = (*Check)(nil)
