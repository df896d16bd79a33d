package harness

// StepState represents the execution state of a step.
type StepState int

const (
	// NotStarted indicates the step has been registered but not yet processed.
	// If validation fails, all steps remain in NotStarted state.
	NotStarted StepState = iota

	// Pending indicates the step is waiting for its dependencies to complete
	// (execution phase has started, but this step hasn't run yet).
	Pending

	// Running indicates the step is currently executing.
	Running

	// Skipped indicates the step was prevented from running during execution
	// (dependency failed, context cancelled, etc.).
	Skipped

	// Completed indicates the step's Execute() returned.
	// The step may have succeeded or failed, check the Error field.
	Completed

	// Panicked indicates the step's Execute() raised a panic that the engine
	// intercepted. The recovery is available in the Result's Panic field.
	Panicked
)

// String returns a human-readable representation of the StepState.
func (s StepState) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Skipped:
		return "skipped"
	case Completed:
		return "completed"
	case Panicked:
		return "panicked"
	default:
		return "unknown"
	}
}
