// Package harness provides dependency-resolved execution of steps with
// panic containment and comprehensive result tracking.
//
// # Overview
//
// The orchestrator runs a set of steps with automatic dependency resolution,
// configuration injection and detailed result tracking. Steps execute
// concurrently in dependency order. A step that panics is intercepted at the
// execution boundary and reported through its Result; it never unwinds the
// engine or the process.
//
// # Step Contract
//
// Steps implement the Step interface:
//
//	type Step interface {
//	    Init() error                       // Structural validation after injection
//	    Execute(ctx context.Context) error // Perform the work
//	}
//
// Init is called after ALL injection is complete and before any step has
// executed. It validates structure and configuration: required config fields
// set, required dependencies non-nil, static relationships between values.
// Execute performs the work and handles runtime validation.
//
// # Dependency Patterns
//
// A pointer field to another step type declares a dependency. Named fields
// receive the dependency for access; the blank identifier declares ordering
// without access:
//
//	type VerifyStep struct {
//	    Connect *ConnectStep  // named: injected, can be read in Execute
//	    _       *UploadStep   // unnamed: ordering only
//	}
//
// An interface field that has been set to another step also declares a
// dependency. This lets a step consume another step's output without
// importing its package:
//
//	type ReportStep struct {
//	    Source ResultSource // holds *CollectStep, set at construction
//	}
//
// Services are injected by type via Inject. Per-step values (loggers, status
// lines) come from factories registered with Provide.
//
// # Configuration Injection
//
// Fields tagged with `harness:"dot.path"` receive values from the config
// passed via WithConfig, resolved by field name or yaml tag.
//
// # State Progression
//
//	NotStarted -> Pending -> Running -> (Completed | Skipped | Panicked)
//
// NotStarted: never progressed (validation failure, circular dependency).
// Skipped: prevented from running (dependency failed, context cancelled).
// Completed: Execute was called and returned; check Result.Error.
// Panicked: Execute was called and raised a panic; Result.Panic holds the
// intercepted recovery.
//
// # Failure Channels
//
// A step fails through one of two channels. An error returned by Execute is
// an expected failure and lands in Result.Error. A panic raised during
// Execute is intercepted and lands in Result.Panic. Either way dependent
// steps are skipped and independent steps keep running.
// Result.FailureMessage unifies both channels for reporting.
//
// # Thread Safety
//
// All orchestrator methods are safe for concurrent use. Results are
// available from AddStep time onward and settle to their final state when
// Execute returns.
package harness
