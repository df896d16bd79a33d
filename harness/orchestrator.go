package harness

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/nomis52/goharness/catcher"
	"github.com/nomis52/goharness/logging"
)

var loggerType = reflect.TypeOf((*slog.Logger)(nil))

// Orchestrator manages the execution of steps.
type Orchestrator struct {
	config  interface{}
	logger  *slog.Logger
	logHook logging.LoggerHook

	// Dependency injection map: type -> instance
	injectedTypes map[reflect.Type]interface{}

	// Per-step factories registered via Provide: type -> factory
	factories map[reflect.Type]func(StepID) reflect.Value

	// Core data structures keyed by StepID
	stepMap         map[StepID]Step
	dependencyMap   map[StepID][]StepID
	completionChans map[StepID]chan struct{} // closed when the step is done
	resultMap       map[StepID]*Result

	// Cache StepID lookups to avoid repeated reflection
	stepIDCache map[Step]StepID

	mu sync.RWMutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a custom logger for the orchestrator.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger.With("component", "orchestrator")
	}
}

// WithConfig sets the configuration used for `harness:` tag injection.
func WithConfig(config interface{}) Option {
	return func(o *Orchestrator) {
		o.config = config
	}
}

// WithLogHook sets a hook that wraps injected *slog.Logger dependencies with
// step-specific behavior, such as per-step log capture.
func WithLogHook(hook logging.LoggerHook) Option {
	return func(o *Orchestrator) {
		o.logHook = hook
	}
}

// NewOrchestrator creates a new orchestrator instance.
func NewOrchestrator(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:          slog.Default().With("component", "orchestrator"),
		injectedTypes:   make(map[reflect.Type]interface{}),
		factories:       make(map[reflect.Type]func(StepID) reflect.Value),
		stepMap:         make(map[StepID]Step),
		dependencyMap:   make(map[StepID][]StepID),
		completionChans: make(map[StepID]chan struct{}),
		resultMap:       make(map[StepID]*Result),
		stepIDCache:     make(map[Step]StepID),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Inject adds one or more typed dependencies for injection into steps.
func (o *Orchestrator) Inject(deps ...interface{}) error {
	for _, dep := range deps {
		if dep == nil {
			o.logger.Warn("attempted to inject nil dependency")
			continue
		}

		depType := reflect.TypeOf(dep)
		if _, exists := o.injectedTypes[depType]; exists {
			return fmt.Errorf("dependency type %s already injected", depType.String())
		}

		o.injectedTypes[depType] = dep
		o.logger.Debug("dependency injected", "type", depType.String())
	}
	return nil
}

// AddStep adds one or more steps to the orchestrator.
// Upon return, the step results are available via GetResult() in NotStarted
// state. Returns an error if a step of the same type already exists.
func (o *Orchestrator) AddStep(steps ...Step) error {
	for _, step := range steps {
		id := o.getOrCacheStepID(step)

		if _, exists := o.resultMap[id]; exists {
			return fmt.Errorf("step of type %s already exists", id.String())
		}

		o.stepMap[id] = step
		o.resultMap[id] = &Result{State: NotStarted}
		o.logger.Debug("step added", "step_id", id.String())
	}

	o.logger.Debug("steps added", "count", len(steps), "total", len(o.stepMap))
	return nil
}

// Execute runs all steps with dependency management.
//
// After Execute() returns, every step has a Result that reflects what
// happened:
//
//  1. Circular dependency detected: State NotStarted, Error nil.
//  2. Other validation failures: State NotStarted, Error "validation failed: ...".
//  3. Initialization failures: State NotStarted, Error "initialization blocked by ...".
//  4. Dependency failed: State Skipped, Error "dependency ... failed".
//  5. Context cancelled: State Skipped, Error "cancelled: ...".
//  6. Execute returned an error: State Completed, Error set.
//  7. Execute panicked: State Panicked, Panic set, Error nil.
//  8. Success: State Completed, Error nil.
func (o *Orchestrator) Execute(ctx context.Context) error {
	if len(o.stepMap) == 0 {
		o.logger.Info("no steps to execute")
		return nil
	}

	o.logger.Info("starting execution", "step_count", len(o.stepMap))

	// 1. Build dependency graph and inject dependencies/config
	if err := o.buildDependencyGraph(); err != nil {
		o.logger.Error("dependency analysis failed", "error", err)
		for id := range o.stepMap {
			o.resultMap[id] = &Result{State: NotStarted, Error: fmt.Errorf("validation failed: %w", err)}
		}
		return fmt.Errorf("dependency analysis failed: %w", err)
	}

	// 2. Initialize all steps
	for id, step := range o.stepMap {
		stepLogger := o.logger.With("step_id", id.String())

		stepLogger.Debug("initializing step")
		if err := step.Init(); err != nil {
			stepLogger.Error("step initialization failed", "error", err)
			for stepID := range o.stepMap {
				if result := o.resultMap[stepID]; result != nil && result.State == NotStarted {
					o.resultMap[stepID] = &Result{State: NotStarted, Error: fmt.Errorf("initialization blocked by %s: %w", id.String(), err)}
				}
			}
			return fmt.Errorf("step %s initialization failed: %w", id.String(), err)
		}
	}

	// 3. Create completion channels for each step
	for id := range o.stepMap {
		o.completionChans[id] = make(chan struct{})
	}

	// 4. Start a goroutine per step
	var wg sync.WaitGroup
	errorChan := make(chan error, len(o.stepMap))

	for id, step := range o.stepMap {
		wg.Add(1)
		go o.runStep(ctx, id, step, &wg, errorChan)
	}

	// 5. Wait for all steps to complete
	go func() {
		wg.Wait()
		close(errorChan)
	}()

	// 6. Collect all errors before returning
	var errs []error
	for err := range errorChan {
		if err != nil {
			o.logger.Error("step execution error", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		o.logger.Error("execution completed with errors", "error_count", len(errs))
		return errs[0]
	}

	o.logger.Info("execution completed successfully")
	return nil
}

// runStep executes a single step after waiting for its dependencies.
func (o *Orchestrator) runStep(ctx context.Context, id StepID, step Step, wg *sync.WaitGroup, errorChan chan<- error) {
	defer wg.Done()

	// The completion channel must close on every exit path, otherwise
	// steps waiting on this one would block forever.
	defer close(o.completionChans[id])

	stepLogger := o.logger.With("step_id", id.String())

	o.setResult(id, &Result{State: Pending})

	// Wait for all dependencies to complete successfully
	dependencies := o.dependencyMap[id]

	for _, depID := range dependencies {
		select {
		case <-ctx.Done():
			stepLogger.Warn("step cancelled", "error", ctx.Err())
			o.setResult(id, &Result{State: Skipped, Error: fmt.Errorf("cancelled: %w", ctx.Err())})
			errorChan <- fmt.Errorf("step %s cancelled: %w", id.String(), ctx.Err())
			return
		case <-o.completionChans[depID]:
			o.mu.RLock()
			depResult, exists := o.resultMap[depID]
			o.mu.RUnlock()

			if !exists {
				err := fmt.Errorf("dependency %s completed but no result found", depID.String())
				o.setResult(id, &Result{State: Skipped, Error: err})
				errorChan <- fmt.Errorf("step %s: %w", id.String(), err)
				return
			}

			if !depResult.IsSuccess() {
				stepLogger.Warn("dependency failed, skipping", "dependency", depID.String(), "reason", depResult.FailureMessage())
				o.setResult(id, &Result{State: Skipped, Error: fmt.Errorf("dependency %s failed: %s", depID.String(), depResult.FailureMessage())})
				errorChan <- fmt.Errorf("step %s skipped because dependency %s failed", id.String(), depID.String())
				return
			}
		}
	}

	stepLogger.Info("all dependencies satisfied, executing step")

	started := time.Now()
	o.setResult(id, &Result{State: Running, StartTime: started})

	// Run Execute inside a panic interception scope. A panicking step is
	// contained here: it is reported through the result and the error
	// channel like an execution failure, and never unwinds the engine.
	var execErr error
	recovered := catcher.Catch(func() {
		execErr = step.Execute(ctx)
	})
	ended := time.Now()

	switch {
	case recovered != nil:
		stepLogger.Error("step panicked", "panic", recovered.String())
		o.setResult(id, &Result{State: Panicked, Panic: recovered, StartTime: started, EndTime: ended})
		errorChan <- fmt.Errorf("step %s panicked: %s", id.String(), recovered.String())
	case execErr != nil:
		stepLogger.Error("step execution failed", "error", execErr)
		o.setResult(id, &Result{State: Completed, Error: execErr, StartTime: started, EndTime: ended})
		errorChan <- fmt.Errorf("step %s failed: %w", id.String(), execErr)
	default:
		stepLogger.Info("step execution completed successfully")
		o.setResult(id, &Result{State: Completed, StartTime: started, EndTime: ended})
	}
}

// setResult replaces the stored result for a step. Results are replaced, not
// mutated, so pointers handed out earlier stay consistent.
func (o *Orchestrator) setResult(id StepID, result *Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resultMap[id] = result
}

// buildDependencyGraph analyzes step dependencies and injects config,
// services and per-step factory values.
func (o *Orchestrator) buildDependencyGraph() error {
	o.logger.Debug("building dependency graph")

	// Reverse lookup map for dependency resolution: step type -> StepID
	stepTypeMap := make(map[reflect.Type]StepID)

	// First pass: build step type map and inject config/services/factories
	for id, step := range o.stepMap {
		stepType := reflect.TypeOf(step).Elem()
		stepTypeMap[stepType] = id

		if err := o.injectStep(step, id); err != nil {
			o.logger.Error("injection failed", "step_id", id.String(), "error", err)
			return fmt.Errorf("injection failed for %s: %w", id.String(), err)
		}
	}

	// Second pass: build dependency graph and inject step dependencies
	for id, step := range o.stepMap {
		dependencies := []StepID{}

		stepValue := reflect.ValueOf(step).Elem()
		stepType := stepValue.Type()

		for i := 0; i < stepType.NumField(); i++ {
			field := stepType.Field(i)
			fieldValue := stepValue.Field(i)

			// Skip unexported fields and config fields
			if !fieldValue.CanSet() && field.Name != "_" {
				continue
			}
			if field.Tag.Get("harness") != "" {
				continue
			}

			if field.Type.Kind() == reflect.Ptr {
				pointedType := field.Type.Elem()
				// Types covered by Inject or Provide are services, not
				// step dependencies.
				if _, injected := o.injectedTypes[field.Type]; injected {
					continue
				}
				if _, injected := o.injectedTypes[pointedType]; injected {
					continue
				}
				if _, provided := o.factories[field.Type]; provided {
					continue
				}

				if depID, exists := stepTypeMap[pointedType]; exists {
					dependencies = append(dependencies, depID)
					o.logger.Debug("step dependency detected", "step_id", id.String(), "dependency", depID.String(), "field_name", field.Name)

					// Unnamed fields declare ordering only and receive no value.
					if field.Name != "_" {
						dependencyStep := o.stepMap[depID]
						fieldValue.Set(reflect.ValueOf(dependencyStep))
					}
				}
			} else if field.Type.Kind() == reflect.Interface {
				// An interface field already holding another step is a
				// dependency: the step consumes the other step's output
				// through the interface without importing its package.
				if _, provided := o.factories[field.Type]; provided {
					continue
				}
				if fieldValue.IsNil() {
					continue
				}
				held := fieldValue.Elem().Type()
				if held.Kind() != reflect.Ptr {
					continue
				}
				if depID, exists := stepTypeMap[held.Elem()]; exists {
					dependencies = append(dependencies, depID)
					o.logger.Debug("step dependency detected", "step_id", id.String(), "dependency", depID.String(), "field_name", field.Name)
				}
			} else if _, exists := stepTypeMap[field.Type]; exists {
				return fmt.Errorf("step %s dependency field %s must be a pointer (*%s), not a struct (%s)",
					id.String(), field.Name, field.Type.Name(), field.Type.Name())
			}
		}

		o.dependencyMap[id] = dependencies
	}

	if err := o.validateNoCycles(); err != nil {
		o.logger.Error("circular dependency detected", "error", err)
		return fmt.Errorf("circular dependency detected: %w", err)
	}

	if err := o.validateDependencies(); err != nil {
		return fmt.Errorf("dependency validation failed: %w", err)
	}

	return nil
}

// injectStep handles config, service and factory injection for a single step.
func (o *Orchestrator) injectStep(step Step, stepID StepID) error {
	stepValue := reflect.ValueOf(step).Elem()
	stepType := stepValue.Type()

	for i := 0; i < stepType.NumField(); i++ {
		field := stepType.Field(i)
		fieldValue := stepValue.Field(i)

		if !fieldValue.CanSet() {
			continue
		}

		// Config injection via `harness:` tag
		if configTag := field.Tag.Get("harness"); configTag != "" {
			if err := o.injectConfigValue(fieldValue, configTag); err != nil {
				return fmt.Errorf("config injection failed for field %s: %w", field.Name, err)
			}
			continue
		}

		// Per-step factory injection
		if factory, exists := o.factories[field.Type]; exists {
			value := factory(stepID)
			if value.IsValid() {
				fieldValue.Set(o.maybeWrapLogger(value, field.Type, stepID))
			}
			continue
		}

		// Service injection by exact type
		if injectedValue, exists := o.injectedTypes[field.Type]; exists {
			fieldValue.Set(o.maybeWrapLogger(reflect.ValueOf(injectedValue), field.Type, stepID))
			continue
		}

		// Service injection via pointer to an injected value type
		if field.Type.Kind() == reflect.Ptr {
			pointedType := field.Type.Elem()
			if injectedValue, exists := o.injectedTypes[pointedType]; exists {
				injectedPtr := reflect.New(pointedType)
				injectedPtr.Elem().Set(reflect.ValueOf(injectedValue))
				fieldValue.Set(injectedPtr)
				continue
			}
		}
	}

	return nil
}

// maybeWrapLogger routes injected loggers through the log hook so each step
// logs with its own identity.
func (o *Orchestrator) maybeWrapLogger(v reflect.Value, fieldType reflect.Type, id StepID) reflect.Value {
	if o.logHook == nil || fieldType != loggerType {
		return v
	}
	base, ok := v.Interface().(*slog.Logger)
	if !ok || base == nil {
		return v
	}
	return reflect.ValueOf(o.logHook.LoggerForStep(base, id.String()))
}

// validateNoCycles performs a topological sort to detect circular dependencies.
func (o *Orchestrator) validateNoCycles() error {
	// Kahn's algorithm
	inDegree := make(map[StepID]int)

	for id := range o.stepMap {
		inDegree[id] = 0
	}

	for stepID, deps := range o.dependencyMap {
		inDegree[stepID] = len(deps)
	}

	queue := []StepID{}
	for id, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, id)
		}
	}

	processed := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		processed++

		for stepID, deps := range o.dependencyMap {
			for _, dep := range deps {
				if dep.Equal(current) {
					inDegree[stepID]--
					if inDegree[stepID] == 0 {
						queue = append(queue, stepID)
					}
				}
			}
		}
	}

	if processed != len(o.stepMap) {
		return fmt.Errorf("circular dependency detected - only %d of %d steps could be processed", processed, len(o.stepMap))
	}

	return nil
}

// validateDependencies checks that all required dependencies are injected.
func (o *Orchestrator) validateDependencies() error {
	for id, step := range o.stepMap {
		stepType := reflect.TypeOf(step).Elem()
		stepValue := reflect.ValueOf(step).Elem()

		for i := 0; i < stepType.NumField(); i++ {
			field := stepType.Field(i)
			fieldValue := stepValue.Field(i)

			// Only named pointer fields without a config tag are required
			// to be non-nil. Unnamed fields declare ordering only.
			if fieldValue.Kind() != reflect.Ptr || field.Tag.Get("harness") != "" {
				continue
			}

			if fieldValue.IsNil() && field.Name != "_" {
				return fmt.Errorf("step %s has nil dependency: %s (%s)", id.String(), field.Name, field.Type.String())
			}
		}
	}

	return nil
}

// injectConfigValue injects a config value using dot notation path.
func (o *Orchestrator) injectConfigValue(fieldValue reflect.Value, configPath string) error {
	if o.config == nil {
		o.logger.Debug("no config provided, skipping config injection", "config_path", configPath)
		return nil
	}

	value := reflect.ValueOf(o.config)
	if value.Kind() == reflect.Ptr {
		value = value.Elem()
	}

	// Navigate through the config using dot notation
	parts := strings.Split(configPath, ".")
	for _, part := range parts {
		if value.Kind() != reflect.Struct {
			return fmt.Errorf("config path %s: expected struct, got %s", configPath, value.Kind())
		}

		var fieldVal reflect.Value

		// Exact field name, then capitalized, then acronym form
		fieldVal = value.FieldByName(part)
		if !fieldVal.IsValid() {
			fieldName := strings.ToUpper(part[:1]) + part[1:]
			fieldVal = value.FieldByName(fieldName)
		}
		if !fieldVal.IsValid() {
			fieldVal = value.FieldByName(strings.ToUpper(part))
		}

		// Fall back to yaml tag matching
		if !fieldVal.IsValid() {
			typ := value.Type()
			for i := 0; i < typ.NumField(); i++ {
				field := typ.Field(i)
				if yamlTag := field.Tag.Get("yaml"); yamlTag != "" {
					yamlName := strings.Split(yamlTag, ",")[0]
					if yamlName == part {
						fieldVal = value.Field(i)
						break
					}
				}
			}
		}

		if !fieldVal.IsValid() {
			return fmt.Errorf("config path %s: field for '%s' not found", configPath, part)
		}
		value = fieldVal
	}

	if !value.Type().AssignableTo(fieldValue.Type()) {
		return fmt.Errorf("config path %s: type %s not assignable to %s", configPath, value.Type(), fieldValue.Type())
	}

	fieldValue.Set(value)
	return nil
}

// getOrCacheStepID returns the StepID for a step, using the cache to avoid
// repeated reflection.
func (o *Orchestrator) getOrCacheStepID(step Step) StepID {
	if id, exists := o.stepIDCache[step]; exists {
		return id
	}

	stepType := reflect.TypeOf(step).Elem()
	id := StepID{
		Module: stepType.PkgPath(),
		Type:   stepType.Name(),
	}
	o.stepIDCache[step] = id
	return id
}

// GetResult returns the result for a step by StepID (thread-safe).
func (o *Orchestrator) GetResult(id StepID) *Result {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.resultMap[id]
}

// GetResultByStep returns the result for a step by reference (thread-safe).
func (o *Orchestrator) GetResultByStep(step Step) *Result {
	id := o.getOrCacheStepID(step)
	return o.GetResult(id)
}

// GetAllResults returns all step results (thread-safe).
func (o *Orchestrator) GetAllResults() map[StepID]*Result {
	o.mu.RLock()
	defer o.mu.RUnlock()

	// Return a copy to prevent external modification
	results := make(map[StepID]*Result, len(o.resultMap))
	for id, result := range o.resultMap {
		results[id] = result
	}
	return results
}
