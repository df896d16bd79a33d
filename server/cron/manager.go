package cron

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Runnable is implemented by anything that can be triggered by the cron scheduler.
type Runnable interface {
	Run(suites []string) error
}

// Manager manages multiple Trigger instances with different suites and schedules.
type Manager struct {
	triggers []*Trigger
	logger   *slog.Logger
}

// NewManager creates a Manager from trigger specs, typically taken from the
// server configuration file.
//
// Returns an error if:
//   - Any spec has no suites or duplicate suites
//   - Any suite name is not in availableSuites
//   - Any cron expression is invalid
func NewManager(specs []TriggerSpec, runnable Runnable, logger *slog.Logger, availableSuites map[string]bool) (*Manager, error) {
	triggers := make([]*Trigger, 0, len(specs))
	for _, spec := range specs {
		if err := validateSpec(spec, availableSuites); err != nil {
			return nil, fmt.Errorf("invalid trigger '%s:%s': %w",
				strings.Join(spec.Suites, suiteListSeparator), spec.CronSpec, err)
		}

		// Create a closure that captures the suites and runnable
		suiteNames := spec.Suites
		callback := func() error {
			return runnable.Run(suiteNames)
		}

		trigger, err := NewTrigger(spec.CronSpec, callback, logger)
		if err != nil {
			return nil, fmt.Errorf("creating trigger for '%s:%s': %w",
				strings.Join(spec.Suites, suiteListSeparator), spec.CronSpec, err)
		}
		triggers = append(triggers, trigger)
	}

	logger.Info("cron trigger manager created", "trigger_count", len(triggers))

	// Log details for each trigger
	for i, trigger := range triggers {
		logger.Info("trigger registered",
			"index", i,
			"suites", specs[i].Suites,
			"schedule", specs[i].CronSpec,
			"next_run", trigger.NextRun(),
		)
	}

	return &Manager{
		triggers: triggers,
		logger:   logger,
	}, nil
}

// NewManagerFromSpec creates a Manager from a compact multi-trigger specification.
// The spec format is: suite1,suite2:cron_expression;suite3:cron_expression2
//
// Example:
//
//	"device,web:0 2 * * *;demo:0 3 * * *"
func NewManagerFromSpec(spec string, runnable Runnable, logger *slog.Logger, availableSuites map[string]bool) (*Manager, error) {
	specs, err := ParseTriggerSpecs(spec, availableSuites)
	if err != nil {
		return nil, err
	}
	return NewManager(specs, runnable, logger, availableSuites)
}

// Start launches all triggers. Each trigger runs in its own goroutine.
// Returns immediately. All goroutines exit when ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	for _, trigger := range m.triggers {
		trigger.Start(ctx)
	}
}

// NextRun returns the earliest scheduled run time across all triggers.
// Returns zero time if there are no triggers.
func (m *Manager) NextRun() time.Time {
	if len(m.triggers) == 0 {
		return time.Time{}
	}

	earliest := m.triggers[0].NextRun()
	for i := 1; i < len(m.triggers); i++ {
		next := m.triggers[i].NextRun()
		if next.Before(earliest) {
			earliest = next
		}
	}

	return earliest
}

// validateSpec checks a structured trigger spec against the available suites.
func validateSpec(spec TriggerSpec, availableSuites map[string]bool) error {
	if len(spec.Suites) == 0 {
		return fmt.Errorf("no suites")
	}

	seen := make(map[string]bool, len(spec.Suites))
	for _, s := range spec.Suites {
		if seen[s] {
			return fmt.Errorf("duplicate suite '%s'", s)
		}
		seen[s] = true

		if !availableSuites[s] {
			return fmt.Errorf("unknown suite '%s' (available: %s)", s, formatAvailableSuites(availableSuites))
		}
	}

	return nil
}
