package harness

import "reflect"

// Factory creates a per-step value of type T. Factories are registered with
// Provide and invoked during dependency injection with the ID of the step
// being populated.
type Factory[T any] func(id StepID) T

// Provide registers a per-step factory with the orchestrator. When a step
// declares a field of the factory's return type, the orchestrator calls the
// factory with the step's ID and injects the result. This is how per-step
// loggers and status lines are created.
//
// Registering a second factory for the same type replaces the first.
func Provide[T any](o *Orchestrator, factory Factory[T]) {
	o.factories[typeFor[T]()] = func(id StepID) reflect.Value {
		v := factory(id)
		return reflect.ValueOf(&v).Elem()
	}
}

// Shared adapts a single value to the factory signature for dependencies
// that do not vary per step.
func Shared[T any](v T) Factory[T] {
	return func(StepID) T { return v }
}

// typeFor returns the reflect.Type of T, including interface types.
func typeFor[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
