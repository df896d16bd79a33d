// Package runner manages suite run execution for the goharness server.
//
// The runner handles:
//   - Starting suite runs in the background
//   - Preventing concurrent runs
//   - Tracking current run status
//   - Maintaining history of completed runs
//
// Each run builds fresh suites from the current configuration, ensuring
// config changes take effect on the next run.
//
// # Example
//
//	r, err := runner.New(logger, configProvider)
//
//	// Start a run in the background
//	if _, err := r.Run([]string{"device"}); err != nil {
//	    if errors.Is(err, runner.ErrRunInProgress) {
//	        // Handle concurrent run attempt
//	    }
//	}
//
//	// Check status with live step executions and logs
//	status := r.Status()
//	if status.State == runner.RunStateRunning {
//	    for _, exec := range status.StepExecutions {
//	        fmt.Printf("%s [%s]: %s\n", exec.Type, exec.State, exec.Status)
//	    }
//	}
//
//	// Get history
//	history := r.History() // Most recent first
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/nomis52/goharness/config"
	"github.com/nomis52/goharness/harness"
	"github.com/nomis52/goharness/logging"
	"github.com/nomis52/goharness/metrics"
	"github.com/nomis52/goharness/step"
	"github.com/nomis52/goharness/suites"
)

// artifactUploadTimeout bounds the post-run artifact upload.
const artifactUploadTimeout = 30 * time.Second

// ErrRunInProgress is returned when attempting to start a run while one is
// already running.
var ErrRunInProgress = errors.New("run already in progress")

// ConfigProvider provides access to the current harness configuration.
type ConfigProvider interface {
	Config() *config.Config
}

// ArtifactUploader receives completed run records for archival outside the
// history store.
type ArtifactUploader interface {
	UploadRun(ctx context.Context, summary RunSummary, steps []StepExecution) error
}

// Runner manages suite run execution.
type Runner struct {
	logger         *slog.Logger
	configProvider ConfigProvider
	store          Store
	registry       metrics.Registry
	metrics        *RunMetrics
	artifacts      ArtifactUploader

	mu               sync.Mutex
	status           RunStatus
	suites           map[string]harness.Suite // Current or last run's suites by name
	statusCollection *step.StatusHandler      // Current run's status collection
	logCollector     *logging.LogCollector    // Captures logs during suite execution
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore configures the runner to use the provided store for persistence.
func WithStore(store Store) Option {
	return func(r *Runner) {
		r.store = store
	}
}

// WithRegistry configures the registry steps record metrics against. The
// runner also registers its own run metrics with it.
func WithRegistry(registry metrics.Registry) Option {
	return func(r *Runner) {
		r.registry = registry
	}
}

// WithArtifacts configures an uploader that receives each completed run.
func WithArtifacts(uploader ArtifactUploader) Option {
	return func(r *Runner) {
		r.artifacts = uploader
	}
}

// New creates a new Runner.
func New(logger *slog.Logger, provider ConfigProvider, opts ...Option) (*Runner, error) {
	r := &Runner{
		logger:         logger,
		configProvider: provider,
		store:          NewMemoryStore(),
		status:         RunStatus{State: RunStateIdle},
	}

	// Apply options
	for _, opt := range opts {
		opt(r)
	}

	if r.registry != nil {
		m, err := NewRunMetrics(r.registry)
		if err != nil {
			return nil, fmt.Errorf("failed to register run metrics: %w", err)
		}
		r.metrics = m
	}

	return r, nil
}

// Run starts a run of the named suites in the background and returns its ID.
// Returns suites.ErrUnknownSuite if any name is not registered, and
// ErrRunInProgress if a run is already in progress.
func (r *Runner) Run(names []string) (string, error) {
	if err := validateNames(names); err != nil {
		return "", err
	}

	id, ok := r.tryStart(names)
	if !ok {
		return "", ErrRunInProgress
	}

	r.logger.Info("starting run", "id", id, "suites", names)

	go func() {
		err := r.executeRun(context.Background(), names)
		r.finish(err)
	}()

	return id, nil
}

// RunSync runs the named suites and blocks until they finish, returning the
// final status. Returns ErrRunInProgress if a run is already in progress.
func (r *Runner) RunSync(ctx context.Context, names []string) (RunStatus, error) {
	if err := validateNames(names); err != nil {
		return RunStatus{}, err
	}

	id, ok := r.tryStart(names)
	if !ok {
		return RunStatus{}, ErrRunInProgress
	}

	r.logger.Info("starting run", "id", id, "suites", names)

	err := r.executeRun(ctx, names)
	return r.finish(err), nil
}

// Status returns the current run status with live step executions and logs.
// If a run is in progress, step executions reflect real-time progress with
// captured logs and status messages. If idle, returns the last completed run
// status (already includes step executions).
func (r *Runner) Status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Make a copy of the base status
	status := r.status

	// If running, build live step executions with current logs and statuses
	if r.status.State == RunStateRunning && r.suites != nil && r.logCollector != nil {
		status.StepExecutions = r.buildStepExecutions()
	}

	return status
}

// IsRunning returns true if a run is in progress.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status.State == RunStateRunning
}

// History returns the completed runs, most recent first.
func (r *Runner) History() []RunSummary {
	return r.store.History()
}

// GetLogs returns the step executions recorded for a completed run.
func (r *Runner) GetLogs(id string) ([]StepExecution, error) {
	return r.store.Logs(id)
}

// validateNames rejects empty requests and unregistered suite names before a
// run starts, so callers get an immediate error instead of a failed run.
func validateNames(names []string) error {
	if len(names) == 0 {
		return errors.New("no suites requested")
	}
	for _, name := range names {
		if !suites.Exists(name) {
			return fmt.Errorf("%w: %s", suites.ErrUnknownSuite, name)
		}
	}
	return nil
}

// tryStart attempts to transition from idle to running.
// Returns the new run's ID and true if successful, false if already running.
func (r *Runner) tryStart(names []string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status.State == RunStateRunning {
		return "", false
	}

	now := time.Now()
	r.status = RunStatus{
		State: RunStateRunning,
		Run: RunSummary{
			ID:        NewRunID(),
			Suites:    names,
			StartedAt: &now,
		},
	}
	r.suites = nil
	r.statusCollection = nil
	r.logCollector = nil

	return r.status.Run.ID, true
}

// finish transitions from running to idle, records the result, and returns
// the final status.
func (r *Runner) finish(err error) RunStatus {
	r.mu.Lock()

	endTime := time.Now()
	duration := endTime.Sub(*r.status.Run.StartedAt)

	r.status.State = RunStateIdle
	r.status.Run.EndedAt = &endTime

	if err != nil {
		r.status.Run.Error = err.Error()
		r.logger.Error("run failed", "id", r.status.Run.ID, "error", err, "duration", duration)
	} else {
		r.status.Run.Error = ""
		r.logger.Info("run completed", "id", r.status.Run.ID, "duration", duration)
	}

	// Build step executions with logs and status messages
	if r.suites != nil && r.logCollector != nil {
		r.status.StepExecutions = r.buildStepExecutions()
	}

	// Save to store
	if err := r.store.Save(r.status.Run, r.status.StepExecutions); err != nil {
		r.logger.Error("failed to save run to store", "error", err)
	}

	status := r.status
	r.mu.Unlock()

	// Metrics and artifact upload can block on the network, so they happen
	// outside the lock.
	r.metrics.Record(status.Run, status.StepExecutions)

	if r.artifacts != nil {
		ctx, cancel := context.WithTimeout(context.Background(), artifactUploadTimeout)
		defer cancel()
		if err := r.artifacts.UploadRun(ctx, status.Run, status.StepExecutions); err != nil {
			r.logger.Error("failed to upload run artifact", "id", status.Run.ID, "error", err)
		}
	}

	return status
}

// buildStepExecutions combines suite results, logs, and status messages into
// StepExecution structs.
func (r *Runner) buildStepExecutions() []StepExecution {
	logs := r.logCollector.GetAllLogs()

	// Get current status messages if collection is available
	var statuses map[harness.StepID]string
	if r.statusCollection != nil {
		statuses = r.statusCollection.All()
	}

	executions := make([]StepExecution, 0)

	for name, suite := range r.suites {
		for id, result := range suite.GetAllResults() {
			exec := StepExecution{
				Suite:  name,
				Module: id.Module,
				Type:   id.Type,
				State:  result.State.String(),
			}

			if result.Error != nil {
				exec.Error = result.Error.Error()
			}
			if result.Panic != nil {
				exec.Panic = result.Panic.String()
			}
			if !result.StartTime.IsZero() {
				t := result.StartTime
				exec.StartTime = &t
			}
			if !result.EndTime.IsZero() {
				t := result.EndTime
				exec.EndTime = &t
			}

			// Add status message for this step
			if statuses != nil {
				if statusMsg, exists := statuses[id]; exists {
					exec.Status = statusMsg
				}
			}

			// Add logs for this step
			if stepLogs, exists := logs[id.String()]; exists {
				exec.Logs = stepLogs
			}

			executions = append(executions, exec)
		}
	}

	// Sort for stable ordering across map iteration
	sort.Slice(executions, func(i, j int) bool {
		a, b := executions[i], executions[j]
		if a.Suite != b.Suite {
			return a.Suite < b.Suite
		}
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		return a.Type < b.Type
	})

	return executions
}

func (r *Runner) executeRun(ctx context.Context, names []string) error {
	cfg := r.configProvider.Config()
	if cfg == nil {
		return errors.New("no configuration available")
	}

	// Create status collection for this run
	statusCollection := step.NewStatusHandler()

	// Create log collector for this run
	logCollector := logging.NewLogCollector()

	// Create logger factory that captures logs per step
	loggerFactory := func(id harness.StepID) *slog.Logger {
		handler := logging.NewCapturingHandler(r.logger.Handler(), logCollector, id.String())
		return slog.New(handler)
	}

	params := suites.Params{
		Config:           cfg,
		Logger:           r.logger,
		StatusCollection: statusCollection,
		LoggerFactory:    loggerFactory,
		Registry:         r.registry,
	}

	built := make(map[string]harness.Suite, len(names))
	ordered := make([]harness.Suite, 0, len(names))
	for _, name := range names {
		suite, err := suites.Build(name, params)
		if err != nil {
			return fmt.Errorf("failed to build suite %s: %w", name, err)
		}
		built[name] = suite
		ordered = append(ordered, suite)
	}

	// Store suites, status collection, and log collector references for
	// result/status/log access
	r.mu.Lock()
	r.suites = built
	r.statusCollection = statusCollection
	r.logCollector = logCollector
	r.mu.Unlock()

	// Execute the suites in the order they were requested
	if err := harness.Compose(ordered...).Execute(ctx); err != nil {
		return fmt.Errorf("suite execution failed: %w", err)
	}

	return nil
}
