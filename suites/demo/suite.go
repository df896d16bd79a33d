// Package demo provides a simple demo suite with three sequential steps for
// exercising the orchestrator's status reporting and execution flow without
// touching real devices.
package demo

import (
	"context"
	"time"

	"github.com/nomis52/goharness/harness"
	"github.com/nomis52/goharness/suites"
)

// Name is the registry name for the demo suite.
const Name = "demo"

// stepDelay is the pause between status updates within each step.
// Package tests shorten it.
var stepDelay = 2 * time.Second

// New creates a demo suite with three sequential steps.
// Each step sets status messages and sleeps to simulate work.
func New(params suites.Params) (harness.Suite, error) {
	cfg := params.Config
	logger := params.Logger

	// Create orchestrator with config and logger options
	var opts []harness.Option
	opts = append(opts, harness.WithLogger(logger))
	if cfg != nil {
		opts = append(opts, harness.WithConfig(cfg))
	}
	o := harness.NewOrchestrator(opts...)

	// Inject common factories (logger, metrics registry, status line)
	params.InjectInto(o)

	inventory := &Inventory{}
	diagnostics := &Diagnostics{}
	report := &Report{}

	if err := o.AddStep(inventory, diagnostics, report); err != nil {
		return nil, err
	}

	return o, nil
}

// pause sleeps for stepDelay or until the context is cancelled.
func pause(ctx context.Context) error {
	select {
	case <-time.After(stepDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
