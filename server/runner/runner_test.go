package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/goharness/config"
	"github.com/nomis52/goharness/harness"
	"github.com/nomis52/goharness/metrics"
	"github.com/nomis52/goharness/step"
	"github.com/nomis52/goharness/suites"
)

type okStep struct {
	Logger     *slog.Logger
	StatusLine *step.StatusLine
}

func (s *okStep) Init() error { return nil }
func (s *okStep) Execute(ctx context.Context) error {
	s.Logger.Info("ok step ran")
	s.StatusLine.Set("all good")
	return nil
}

type failStep struct {
	Logger *slog.Logger
}

func (s *failStep) Init() error { return nil }
func (s *failStep) Execute(ctx context.Context) error {
	return errors.New("induced failure")
}

type panicStep struct {
	Logger *slog.Logger
}

func (s *panicStep) Init() error { return nil }
func (s *panicStep) Execute(ctx context.Context) error {
	panic("boom")
}

type blockStep struct {
	Logger *slog.Logger
	ch     chan struct{}
}

func (s *blockStep) Init() error { return nil }
func (s *blockStep) Execute(ctx context.Context) error {
	select {
	case <-s.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// rtBlock gates the rt-block suite. Tests assign a fresh channel before
// starting a run and close it to let the run finish.
var rtBlock chan struct{}

var registerOnce sync.Once

func registerTestSuites() {
	registerOnce.Do(func() {
		mustRegister := func(name string, builder suites.Builder) {
			if err := suites.Register(name, builder); err != nil {
				panic(err)
			}
		}

		mustRegister("rt-ok", func(p suites.Params) (harness.Suite, error) {
			return buildTestSuite(p, &okStep{})
		})
		mustRegister("rt-fail", func(p suites.Params) (harness.Suite, error) {
			return buildTestSuite(p, &failStep{})
		})
		mustRegister("rt-panic", func(p suites.Params) (harness.Suite, error) {
			return buildTestSuite(p, &panicStep{})
		})
		mustRegister("rt-block", func(p suites.Params) (harness.Suite, error) {
			return buildTestSuite(p, &blockStep{ch: rtBlock})
		})
		mustRegister("rt-badbuild", func(p suites.Params) (harness.Suite, error) {
			return nil, errors.New("cannot build")
		})
	})
}

func buildTestSuite(p suites.Params, steps ...harness.Step) (harness.Suite, error) {
	o := harness.NewOrchestrator(harness.WithLogger(p.Logger))
	p.InjectInto(o)
	if err := o.AddStep(steps...); err != nil {
		return nil, err
	}
	return o, nil
}

type staticConfig struct {
	cfg *config.Config
}

func (p *staticConfig) Config() *config.Config { return p.cfg }

type uploadCall struct {
	summary RunSummary
	steps   []StepExecution
}

type captureUploader struct {
	mu    sync.Mutex
	calls []uploadCall
}

func (u *captureUploader) UploadRun(ctx context.Context, summary RunSummary, steps []StepExecution) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, uploadCall{summary: summary, steps: steps})
	return nil
}

func newTestRunner(t *testing.T, opts ...Option) *Runner {
	t.Helper()
	registerTestSuites()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r, err := New(logger, &staticConfig{cfg: &config.Config{}}, opts...)
	require.NoError(t, err)
	return r
}

func TestNew(t *testing.T) {
	r := newTestRunner(t)

	status := r.Status()
	assert.Equal(t, RunStateIdle, status.State)
	assert.Empty(t, status.Run.ID)
	assert.False(t, r.IsRunning())
	assert.Empty(t, r.History())
}

func TestRunner_RunSync_Success(t *testing.T) {
	r := newTestRunner(t)

	status, err := r.RunSync(context.Background(), []string{"rt-ok"})
	require.NoError(t, err)

	assert.Equal(t, RunStateIdle, status.State)
	assert.NotEmpty(t, status.Run.ID)
	assert.Equal(t, []string{"rt-ok"}, status.Run.Suites)
	assert.Empty(t, status.Run.Error)
	require.NotNil(t, status.Run.StartedAt)
	require.NotNil(t, status.Run.EndedAt)

	require.Len(t, status.StepExecutions, 1)
	exec := status.StepExecutions[0]
	assert.Equal(t, "rt-ok", exec.Suite)
	assert.Equal(t, "okStep", exec.Type)
	assert.Equal(t, "completed", exec.State)
	assert.Equal(t, "all good", exec.Status)
	assert.Empty(t, exec.Error)
	assert.NotNil(t, exec.StartTime)
	assert.NotNil(t, exec.EndTime)
	assert.NotEmpty(t, exec.Logs, "captured step logs should be attached")

	history := r.History()
	require.Len(t, history, 1)
	assert.Equal(t, status.Run.ID, history[0].ID)
}

func TestRunner_RunSync_Failure(t *testing.T) {
	r := newTestRunner(t)

	status, err := r.RunSync(context.Background(), []string{"rt-fail"})
	require.NoError(t, err)

	assert.Contains(t, status.Run.Error, "suite execution failed")

	require.Len(t, status.StepExecutions, 1)
	exec := status.StepExecutions[0]
	assert.Equal(t, "completed", exec.State)
	assert.Equal(t, "induced failure", exec.Error)
}

func TestRunner_RunSync_Panic(t *testing.T) {
	r := newTestRunner(t)

	status, err := r.RunSync(context.Background(), []string{"rt-panic"})
	require.NoError(t, err)

	assert.NotEmpty(t, status.Run.Error)

	require.Len(t, status.StepExecutions, 1)
	exec := status.StepExecutions[0]
	assert.Equal(t, "panicked", exec.State)
	assert.Contains(t, exec.Panic, "boom")
}

func TestRunner_RunSync_MultipleSuites(t *testing.T) {
	r := newTestRunner(t)

	status, err := r.RunSync(context.Background(), []string{"rt-ok", "rt-fail"})
	require.NoError(t, err)

	assert.Equal(t, []string{"rt-ok", "rt-fail"}, status.Run.Suites)
	assert.NotEmpty(t, status.Run.Error)

	require.Len(t, status.StepExecutions, 2)
	// Sorted by suite name
	assert.Equal(t, "rt-fail", status.StepExecutions[0].Suite)
	assert.Equal(t, "rt-ok", status.StepExecutions[1].Suite)
}

func TestRunner_RunSync_BuildFailure(t *testing.T) {
	r := newTestRunner(t)

	status, err := r.RunSync(context.Background(), []string{"rt-badbuild"})
	require.NoError(t, err)

	assert.Contains(t, status.Run.Error, "failed to build suite rt-badbuild")
	assert.Empty(t, status.StepExecutions)

	// The failed run still lands in history
	require.Len(t, r.History(), 1)
}

func TestRunner_RunSync_UnknownSuite(t *testing.T) {
	r := newTestRunner(t)

	_, err := r.RunSync(context.Background(), []string{"rt-does-not-exist"})
	require.ErrorIs(t, err, suites.ErrUnknownSuite)
	assert.Contains(t, err.Error(), "rt-does-not-exist")

	// Nothing should have been recorded for the rejected request.
	assert.Empty(t, r.History())
	assert.False(t, r.IsRunning())
}

func TestRunner_RunSync_NoConfig(t *testing.T) {
	registerTestSuites()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r, err := New(logger, &staticConfig{cfg: nil})
	require.NoError(t, err)

	status, err := r.RunSync(context.Background(), []string{"rt-ok"})
	require.NoError(t, err)
	assert.Contains(t, status.Run.Error, "no configuration available")
}

func TestRunner_NoSuites(t *testing.T) {
	r := newTestRunner(t)

	_, err := r.Run(nil)
	assert.Error(t, err)

	_, err = r.RunSync(context.Background(), nil)
	assert.Error(t, err)
}

func TestRunner_Run_Background(t *testing.T) {
	rtBlock = make(chan struct{})
	r := newTestRunner(t)

	id, err := r.Run([]string{"rt-block"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.True(t, r.IsRunning())

	// A second run is rejected while the first is in flight
	_, err = r.Run([]string{"rt-ok"})
	assert.ErrorIs(t, err, ErrRunInProgress)
	_, err = r.RunSync(context.Background(), []string{"rt-ok"})
	assert.ErrorIs(t, err, ErrRunInProgress)

	status := r.Status()
	assert.Equal(t, RunStateRunning, status.State)
	assert.Equal(t, id, status.Run.ID)
	assert.Nil(t, status.Run.EndedAt)

	close(rtBlock)
	require.Eventually(t, func() bool { return !r.IsRunning() }, 5*time.Second, 10*time.Millisecond)

	history := r.History()
	require.Len(t, history, 1)
	assert.Equal(t, id, history[0].ID)
	assert.Empty(t, history[0].Error)
}

func TestRunner_GetLogs(t *testing.T) {
	r := newTestRunner(t)

	status, err := r.RunSync(context.Background(), []string{"rt-ok"})
	require.NoError(t, err)

	steps, err := r.GetLogs(status.Run.ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "okStep", steps[0].Type)

	_, err = r.GetLogs("no-such-run")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunner_WithRegistry(t *testing.T) {
	registry, err := metrics.NewScrapeRegistry()
	require.NoError(t, err)

	r := newTestRunner(t, WithRegistry(registry))

	_, err = r.RunSync(context.Background(), []string{"rt-ok"})
	require.NoError(t, err)

	body := scrapeBody(t, registry)
	assert.Contains(t, body, `runs_total{result="success"} 1`)
	assert.Contains(t, body, `steps_total{state="completed",step="okStep",suite="rt-ok"} 1`)
}

func TestRunner_WithArtifacts(t *testing.T) {
	uploader := &captureUploader{}
	r := newTestRunner(t, WithArtifacts(uploader))

	status, err := r.RunSync(context.Background(), []string{"rt-ok"})
	require.NoError(t, err)

	require.Len(t, uploader.calls, 1)
	assert.Equal(t, status.Run.ID, uploader.calls[0].summary.ID)
	assert.Len(t, uploader.calls[0].steps, 1)
}

func TestRunner_WithStore(t *testing.T) {
	store := NewMemoryStore()
	r := newTestRunner(t, WithStore(store))

	status, err := r.RunSync(context.Background(), []string{"rt-ok"})
	require.NoError(t, err)

	history := store.History()
	require.Len(t, history, 1)
	assert.Equal(t, status.Run.ID, history[0].ID)
}
