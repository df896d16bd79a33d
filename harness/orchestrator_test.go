package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/nomis52/goharness/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Helpers
// ---------------------------------------------------------------------

// getResult is a helper to get a result for a step from the orchestrator
func getResult(o *Orchestrator, step Step) *Result {
	allResults := o.GetAllResults()
	stepID := GetStepID(step)
	return allResults[stepID]
}

// Tests
// ---------------------------------------------------------------------

// TestOrchestrator_NoSteps tests orchestrator with no steps
func TestOrchestrator_NoSteps(t *testing.T) {
	orchestrator := NewOrchestrator()

	err := orchestrator.Execute(context.Background())
	require.NoError(t, err, "Should handle no steps gracefully")

	allResults := orchestrator.GetAllResults()
	assert.Empty(t, allResults, "Should have no results")
}

// TestOrchestrator_DuplicateStepDetection tests that duplicate steps are rejected
func TestOrchestrator_DuplicateStepDetection(t *testing.T) {
	orchestrator := NewOrchestrator()

	step1 := &PassStep{}
	err := orchestrator.AddStep(step1)
	require.NoError(t, err, "First step should be added successfully")

	// Try to add another step of the same type
	step2 := &PassStep{}
	err = orchestrator.AddStep(step2)
	require.Error(t, err, "Should reject duplicate step")
	assert.Contains(t, err.Error(), "already exists", "Error message should mention duplicate")
}

// TestOrchestrator_BasicFeatures tests basic orchestrator functionality
func TestOrchestrator_BasicFeatures(t *testing.T) {
	t.Run("StepExecution", func(t *testing.T) {
		orchestrator := NewOrchestrator()
		step := &PassStep{}

		err := orchestrator.AddStep(step)
		require.NoError(t, err)

		err = orchestrator.Execute(context.Background())
		require.NoError(t, err)

		assert.True(t, step.Executed, "Step should be executed")
		result := getResult(orchestrator, step)
		assert.Equal(t, Completed, result.State)
		assert.Nil(t, result.Error)
		assert.False(t, result.StartTime.IsZero())
		assert.False(t, result.EndTime.IsZero())
	})

	t.Run("StepResults", func(t *testing.T) {
		orchestrator := NewOrchestrator()
		step := &PassStep{}

		// Results available before Execute
		err := orchestrator.AddStep(step)
		require.NoError(t, err)

		result := getResult(orchestrator, step)
		require.NotNil(t, result)
		assert.Equal(t, NotStarted, result.State)

		// Execute
		err = orchestrator.Execute(context.Background())
		require.NoError(t, err)

		// Results updated after Execute
		result = getResult(orchestrator, step)
		assert.Equal(t, Completed, result.State)
	})

	t.Run("GetAllResults", func(t *testing.T) {
		orchestrator := NewOrchestrator()
		step1 := &PassStep{}
		step2 := &FailStep{}

		err := orchestrator.AddStep(step1, step2)
		require.NoError(t, err)

		err = orchestrator.Execute(context.Background())
		require.Error(t, err) // FailStep will cause an error

		results := orchestrator.GetAllResults()
		assert.Len(t, results, 2)
	})
}

// TestOrchestrator_PanicContainment tests that a panicking step is intercepted
// without unwinding the engine or stopping independent steps.
func TestOrchestrator_PanicContainment(t *testing.T) {
	t.Run("PanicReportedInResult", func(t *testing.T) {
		orchestrator := NewOrchestrator()
		panicking := &PanicStep{}
		independent := &PassStep{}

		err := orchestrator.AddStep(panicking, independent)
		require.NoError(t, err)

		require.NotPanics(t, func() {
			err = orchestrator.Execute(context.Background())
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panicked")

		result := getResult(orchestrator, panicking)
		assert.Equal(t, Panicked, result.State)
		require.NotNil(t, result.Panic)
		assert.Contains(t, result.Panic.String(), "index out of range")
		assert.Nil(t, result.Error, "panics are reported via Panic, not Error")
		assert.Contains(t, result.FailureMessage(), "index out of range")

		// Independent step is unaffected
		indepResult := getResult(orchestrator, independent)
		assert.Equal(t, Completed, indepResult.State)
		assert.True(t, independent.Executed)
	})

	t.Run("DependentOfPanickedStepIsSkipped", func(t *testing.T) {
		orchestrator := NewOrchestrator()
		panicking := &PanicStep{}
		dependent := &DependsOnPanicStep{}

		err := orchestrator.AddStep(panicking, dependent)
		require.NoError(t, err)

		err = orchestrator.Execute(context.Background())
		require.Error(t, err)

		result := getResult(orchestrator, dependent)
		assert.Equal(t, Skipped, result.State)
		assert.False(t, dependent.Executed)
		require.NotNil(t, result.Error)
		assert.Contains(t, result.Error.Error(), "dependency")
	})

	t.Run("SideEffectsBeforePanicPersist", func(t *testing.T) {
		orchestrator := NewOrchestrator()
		step := &PanicStep{}

		err := orchestrator.AddStep(step)
		require.NoError(t, err)

		err = orchestrator.Execute(context.Background())
		require.Error(t, err)

		assert.Equal(t, 1, step.Counter, "work done before the panic should persist")
	})
}

// TestOrchestrator_TransitiveSkip tests that skips cascade through dependency chains.
func TestOrchestrator_TransitiveSkip(t *testing.T) {
	orchestrator := NewOrchestrator()
	failing := &FailStep{}
	middle := &DependsOnFailStep{}
	last := &DependsOnMiddleStep{}

	err := orchestrator.AddStep(failing, middle, last)
	require.NoError(t, err)

	err = orchestrator.Execute(context.Background())
	require.Error(t, err)

	assert.Equal(t, Completed, getResult(orchestrator, failing).State)
	assert.Equal(t, Skipped, getResult(orchestrator, middle).State)
	assert.Equal(t, Skipped, getResult(orchestrator, last).State)
	assert.False(t, middle.Executed)
	assert.False(t, last.Executed)
}

// TestOrchestrator_FailureHandling tests how orchestrator handles failures
func TestOrchestrator_FailureHandling(t *testing.T) {
	t.Run("ConfigurationError", func(t *testing.T) {
		// Invalid config: missing address
		config := TestConfig{
			Target: TargetConfig{
				Address: "", // Empty address will cause Init() to fail
				Port:    22,
			},
		}

		recorder := &MockRecorder{}

		orchestrator := NewOrchestrator(WithConfig(config))
		err := orchestrator.Inject(recorder)
		require.NoError(t, err)

		step := &ConnectStep{}

		err = orchestrator.AddStep(step)
		require.NoError(t, err)

		err = orchestrator.Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "initialization failed")

		result := getResult(orchestrator, step)
		assert.Equal(t, NotStarted, result.State)
	})

	t.Run("MissingDependency", func(t *testing.T) {
		orchestrator := NewOrchestrator()
		step := &ConnectStep{}

		err := orchestrator.AddStep(step)
		require.NoError(t, err)

		// Don't inject recorder
		err = orchestrator.Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "has nil dependency")

		result := getResult(orchestrator, step)
		assert.Equal(t, NotStarted, result.State)
	})
}

// TestOrchestrator_CircularDependencyDetection tests circular dependency detection
func TestOrchestrator_CircularDependencyDetection(t *testing.T) {
	orchestrator := NewOrchestrator()
	first := &FirstCircularStep{}
	second := &SecondCircularStep{}

	err := orchestrator.AddStep(first, second)
	require.NoError(t, err)

	err = orchestrator.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular dependency")
}

// TestOrchestrator_DependencyInjection tests dependency injection features
func TestOrchestrator_DependencyInjection(t *testing.T) {
	config := TestConfig{
		Target: TargetConfig{
			Address: "device.local",
			Port:    22,
		},
		Check: CheckConfig{
			Timeout: 30,
		},
	}

	recorder := &MockRecorder{}

	orchestrator := NewOrchestrator(
		WithConfig(config),
	)

	err := orchestrator.Inject(recorder)
	require.NoError(t, err)

	connect := &ConnectStep{}
	verify := &VerifyStep{}

	err = orchestrator.AddStep(connect, verify)
	require.NoError(t, err)

	err = orchestrator.Execute(context.Background())
	require.NoError(t, err)

	assert.True(t, connect.Executed)
	assert.True(t, verify.Executed)
	assert.Equal(t, "device.local", connect.Address)
	assert.Equal(t, 30, verify.CheckTimeout)
}

// TestOrchestrator_UnnamedOrderingDependency tests that blank fields declare
// ordering without receiving a value.
func TestOrchestrator_UnnamedOrderingDependency(t *testing.T) {
	orchestrator := NewOrchestrator()
	failing := &FailStep{}
	ordered := &OrderedAfterFailStep{}

	err := orchestrator.AddStep(failing, ordered)
	require.NoError(t, err)

	err = orchestrator.Execute(context.Background())
	require.Error(t, err)

	// The blank field carried a dependency, so the failing step's failure
	// must have skipped the ordered step.
	result := getResult(orchestrator, ordered)
	assert.Equal(t, Skipped, result.State)
	assert.False(t, ordered.Executed)
}

// TestOrchestrator_InterfaceDependency tests that interface fields holding
// steps declare dependencies.
func TestOrchestrator_InterfaceDependency(t *testing.T) {
	t.Run("consumer runs after producer", func(t *testing.T) {
		orchestrator := NewOrchestrator()
		producer := &ProduceStep{}
		consumer := &ConsumeStep{Source: producer}

		err := orchestrator.AddStep(producer, consumer)
		require.NoError(t, err)

		err = orchestrator.Execute(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "ready", consumer.Got)
	})

	t.Run("consumer skipped when producer fails", func(t *testing.T) {
		orchestrator := NewOrchestrator()
		producer := &FailingProduceStep{}
		consumer := &ConsumeStep{Source: producer}

		err := orchestrator.AddStep(producer, consumer)
		require.NoError(t, err)

		err = orchestrator.Execute(context.Background())
		require.Error(t, err)

		result := getResult(orchestrator, consumer)
		assert.Equal(t, Skipped, result.State)
		assert.False(t, consumer.Executed)
	})

	t.Run("nil interface field is not a dependency", func(t *testing.T) {
		orchestrator := NewOrchestrator()
		consumer := &ConsumeStep{}

		err := orchestrator.AddStep(consumer)
		require.NoError(t, err)

		err = orchestrator.Execute(context.Background())
		require.NoError(t, err)

		assert.True(t, consumer.Executed)
	})
}

// TestOrchestrator_ProvideFactories tests per-step factory injection
func TestOrchestrator_ProvideFactories(t *testing.T) {
	orchestrator := NewOrchestrator()

	var seen []string
	var mu sync.Mutex
	Provide(orchestrator, func(id StepID) *StepTag {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, id.Type)
		return &StepTag{Name: id.ShortString()}
	})

	tagged := &TaggedStep{}
	err := orchestrator.AddStep(tagged)
	require.NoError(t, err)

	err = orchestrator.Execute(context.Background())
	require.NoError(t, err)

	require.NotNil(t, tagged.Tag)
	assert.Equal(t, "harness.TaggedStep", tagged.Tag.Name)
	assert.Contains(t, seen, "TaggedStep")
}

// TestOrchestrator_SharedFactory tests Shared value adaptation
func TestOrchestrator_SharedFactory(t *testing.T) {
	orchestrator := NewOrchestrator()

	shared := &StepTag{Name: "shared"}
	Provide(orchestrator, Shared(shared))

	tagged := &TaggedStep{}
	err := orchestrator.AddStep(tagged)
	require.NoError(t, err)

	err = orchestrator.Execute(context.Background())
	require.NoError(t, err)

	assert.Same(t, shared, tagged.Tag)
}

// TestOrchestrator_ImmediateResultAvailability tests that results are available immediately after AddStep
func TestOrchestrator_ImmediateResultAvailability(t *testing.T) {
	orchestrator := NewOrchestrator()
	step := &PassStep{}

	// Before adding step
	results := orchestrator.GetAllResults()
	assert.Empty(t, results)

	// Add step
	err := orchestrator.AddStep(step)
	require.NoError(t, err)

	// Results immediately available
	results = orchestrator.GetAllResults()
	assert.Len(t, results, 1)

	id := GetStepID(step)
	result, exists := results[id]
	require.True(t, exists)
	assert.Equal(t, NotStarted, result.State)
	assert.Nil(t, result.Error)
}

// TestOrchestrator_LogCapture tests that logs are captured via LoggerHook
func TestOrchestrator_LogCapture(t *testing.T) {
	collector := logging.NewLogCollector()
	hook := logging.NewCapturingLoggerHook(collector)

	baseLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	orchestrator := NewOrchestrator(
		WithLogHook(hook),
	)

	// Inject the base logger so steps can receive it
	err := orchestrator.Inject(baseLogger)
	require.NoError(t, err)

	step := &LoggingStep{}
	err = orchestrator.AddStep(step)
	require.NoError(t, err)

	err = orchestrator.Execute(context.Background())
	require.NoError(t, err)

	assert.True(t, step.Executed)

	stepID := GetStepID(step).String()

	logs := collector.GetLogs(stepID)
	require.NotEmpty(t, logs, "Expected logs to be captured")

	var hasInitLog bool
	var hasExecuteLog bool
	for _, log := range logs {
		if log.Message == "Initializing LoggingStep" {
			hasInitLog = true
		}
		if log.Message == "Executing LoggingStep" {
			hasExecuteLog = true
		}
	}

	assert.True(t, hasInitLog, "Expected log from Init()")
	assert.True(t, hasExecuteLog, "Expected log from Execute()")
}

// ---------------------------------------------------------------------
// Test Step Definitions
// ---------------------------------------------------------------------

// PassStep - For testing successful scenarios
type PassStep struct {
	Executed bool
}

func (a *PassStep) Init() error { return nil }

func (a *PassStep) Execute(ctx context.Context) error {
	a.Executed = true
	return nil
}

// FailStep - For testing failure scenarios
type FailStep struct {
	Executed bool
}

func (a *FailStep) Init() error { return nil }

func (a *FailStep) Execute(ctx context.Context) error {
	a.Executed = true
	return fmt.Errorf("intentional failure")
}

// PanicStep - For testing panic containment. Mutates Counter before panicking
// so side effect persistence can be verified.
type PanicStep struct {
	Counter int
}

func (a *PanicStep) Init() error { return nil }

func (a *PanicStep) Execute(ctx context.Context) error {
	a.Counter++
	values := []int{1, 2, 3}
	index := 5
	_ = values[index]
	return nil
}

// DependsOnPanicStep - Depends on the panicking step
type DependsOnPanicStep struct {
	Upstream *PanicStep
	Executed bool
}

func (d *DependsOnPanicStep) Init() error { return nil }
func (d *DependsOnPanicStep) Execute(ctx context.Context) error {
	d.Executed = true
	return nil
}

// DependsOnFailStep - middle link in a failure chain
type DependsOnFailStep struct {
	Upstream *FailStep
	Executed bool
}

func (d *DependsOnFailStep) Init() error { return nil }
func (d *DependsOnFailStep) Execute(ctx context.Context) error {
	d.Executed = true
	return nil
}

// DependsOnMiddleStep - last link in a failure chain
type DependsOnMiddleStep struct {
	Upstream *DependsOnFailStep
	Executed bool
}

func (d *DependsOnMiddleStep) Init() error { return nil }
func (d *DependsOnMiddleStep) Execute(ctx context.Context) error {
	d.Executed = true
	return nil
}

// OrderedAfterFailStep - ordering-only dependency on FailStep
type OrderedAfterFailStep struct {
	_        *FailStep
	Executed bool
}

func (d *OrderedAfterFailStep) Init() error { return nil }
func (d *OrderedAfterFailStep) Execute(ctx context.Context) error {
	d.Executed = true
	return nil
}

// valueSource is consumed by ConsumeStep through an interface field.
type valueSource interface {
	Value() string
}

// ProduceStep - records a value for interface-based consumers
type ProduceStep struct {
	produced string
}

func (p *ProduceStep) Init() error { return nil }
func (p *ProduceStep) Execute(ctx context.Context) error {
	p.produced = "ready"
	return nil
}
func (p *ProduceStep) Value() string { return p.produced }

// FailingProduceStep - fails before recording a value
type FailingProduceStep struct{}

func (p *FailingProduceStep) Init() error { return nil }
func (p *FailingProduceStep) Execute(ctx context.Context) error {
	return fmt.Errorf("producer broke")
}
func (p *FailingProduceStep) Value() string { return "" }

// ConsumeStep - depends on a producer through an interface field
type ConsumeStep struct {
	Source   valueSource
	Got      string
	Executed bool
}

func (c *ConsumeStep) Init() error { return nil }
func (c *ConsumeStep) Execute(ctx context.Context) error {
	c.Executed = true
	if c.Source != nil {
		c.Got = c.Source.Value()
	}
	return nil
}

// Two steps that depend on each other
type FirstCircularStep struct {
	Second *SecondCircularStep
}

func (f *FirstCircularStep) Init() error { return nil }
func (f *FirstCircularStep) Execute(ctx context.Context) error {
	return nil
}

type SecondCircularStep struct {
	First *FirstCircularStep
}

func (s *SecondCircularStep) Init() error { return nil }
func (s *SecondCircularStep) Execute(ctx context.Context) error {
	return nil
}

// ConnectStep - Foundation step with config injection
type ConnectStep struct {
	Address  string        `harness:"target.address"`
	Port     int           `harness:"target.port"`
	Recorder *MockRecorder // Service injection
	Executed bool
}

func (a *ConnectStep) Init() error {
	if a.Address == "" {
		return fmt.Errorf("target address not configured")
	}
	if a.Recorder == nil {
		return fmt.Errorf("recorder not injected")
	}
	return nil
}

func (a *ConnectStep) Execute(ctx context.Context) error {
	a.Recorder.Record("connecting to target")
	a.Executed = true
	return nil
}

// VerifyStep - Depends on ConnectStep
type VerifyStep struct {
	Connect      *ConnectStep  // Step dependency
	CheckTimeout int           `harness:"check.timeout"`
	Recorder     *MockRecorder // Service injection
	Executed     bool
}

func (a *VerifyStep) Init() error {
	if a.Connect == nil {
		return fmt.Errorf("connect step not injected")
	}
	return nil
}

func (a *VerifyStep) Execute(ctx context.Context) error {
	if !a.Connect.Executed {
		return fmt.Errorf("connect step not executed")
	}
	a.Recorder.Record("verifying target")
	a.Executed = true
	return nil
}

// StepTag - value produced by a Provide factory in tests
type StepTag struct {
	Name string
}

// TaggedStep - receives a factory-produced StepTag
type TaggedStep struct {
	Tag *StepTag
}

func (a *TaggedStep) Init() error {
	if a.Tag == nil {
		return fmt.Errorf("tag not injected")
	}
	return nil
}

func (a *TaggedStep) Execute(ctx context.Context) error { return nil }

// LoggingStep - Step that logs in both Init() and Execute()
type LoggingStep struct {
	Logger   *slog.Logger
	Executed bool
}

func (a *LoggingStep) Init() error {
	if a.Logger == nil {
		return fmt.Errorf("logger not injected")
	}
	a.Logger.Info("Initializing LoggingStep")
	return nil
}

func (a *LoggingStep) Execute(ctx context.Context) error {
	a.Logger.Info("Executing LoggingStep")
	a.Logger.Debug("Debug message from Execute")
	a.Executed = true
	return nil
}

// ---------------------------------------------------------------------
// Mock Recorder
// ---------------------------------------------------------------------
type MockRecorder struct {
	Entries []string
	mu      sync.Mutex
}

func (m *MockRecorder) Record(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, message)
}

// ---------------------------------------------------------------------
// Test Config Structs
// ---------------------------------------------------------------------
type TargetConfig struct {
	Address string
	Port    int
}

type CheckConfig struct {
	Timeout int
}

type TestConfig struct {
	Target TargetConfig
	Check  CheckConfig
}
