// Package suites provides suite registration and the shared infrastructure
// for suite construction. Unlike the generic harness package (which handles
// orchestration), this package contains types specific to the goharness
// application.
package suites

import (
	"log/slog"

	"github.com/nomis52/goharness/config"
	"github.com/nomis52/goharness/harness"
	"github.com/nomis52/goharness/metrics"
	"github.com/nomis52/goharness/step"
)

// Params contains common parameters for suite construction.
// Suites may use all or a subset of these fields depending on their needs.
type Params struct {
	// Config is the harness configuration. Some suites (e.g., demo) may not need this.
	Config *config.Config

	// Logger is the base logger for the suite.
	Logger *slog.Logger

	// StatusCollection tracks step status updates. May be nil if status tracking is not needed.
	StatusCollection *step.StatusHandler

	// LoggerFactory creates per-step loggers. If nil, Logger is used for all steps.
	LoggerFactory harness.Factory[*slog.Logger]

	// Registry is used for step-level metrics. May be nil if metrics are not needed.
	Registry metrics.Registry
}

// InjectInto registers common factories into an orchestrator.
// This eliminates duplication across suite constructors by providing
// the standard logger factory, metrics registry, and status line factories.
func (p Params) InjectInto(o *harness.Orchestrator) {
	// Default logger factory to shared logger if not provided
	loggerFactory := p.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = harness.Shared(p.Logger)
	}

	// Metrics registry (optional - steps check for nil)
	if p.Registry != nil {
		harness.Provide(o, harness.Shared(p.Registry))
	}

	// Logger factory (per-step, defaults to shared logger)
	harness.Provide(o, loggerFactory)

	// StatusLine factory (per-step)
	harness.Provide(o, func(id harness.StepID) *step.StatusLine {
		stepLogger := loggerFactory(id)
		return step.NewStatusLine(id, stepLogger, p.StatusCollection)
	})
}
