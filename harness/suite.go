package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/sourcegraph/conc/pool"
)

// Suite represents an executable collection of steps. Suites provide a clean
// interface for composing and executing steps while keeping access to their
// results.
type Suite interface {
	// Execute runs the suite to completion.
	// Returns an error if the suite execution fails.
	Execute(ctx context.Context) error

	// GetAllResults returns all step results from the suite.
	// The returned map is a copy and safe for concurrent access.
	GetAllResults() map[StepID]*Result
}

var _ Suite = (*Orchestrator)(nil)

// Compose creates a composite suite that executes multiple suites in
// sequence. Each suite runs in order, and execution continues even if a
// suite fails. If multiple suites fail, their errors are combined into a
// single error. Results from all suites are aggregated and accessible via
// GetAllResults().
func Compose(suites ...Suite) Suite {
	return &compositeSuite{
		suites: suites,
	}
}

// compositeSuite executes multiple suites in sequence.
type compositeSuite struct {
	suites []Suite
}

// Execute runs all suites in sequence, continuing even if one fails.
// Returns a combined error if any suite fails.
func (c *compositeSuite) Execute(ctx context.Context) error {
	var errs []error

	for i, s := range c.suites {
		if err := s.Execute(ctx); err != nil {
			errs = append(errs, fmt.Errorf("suite %d failed: %w", i, err))
		}
	}

	if len(errs) > 0 {
		var errMsgs []string
		for _, err := range errs {
			errMsgs = append(errMsgs, err.Error())
		}
		return fmt.Errorf("%d suite(s) failed:\n  - %s", len(errs), strings.Join(errMsgs, "\n  - "))
	}

	return nil
}

// GetAllResults returns all step results from all composed suites in real
// time. It queries each suite directly and merges the results, so it
// reflects the current state even during execution.
func (c *compositeSuite) GetAllResults() map[StepID]*Result {
	results := make(map[StepID]*Result)
	for _, s := range c.suites {
		for id, result := range s.GetAllResults() {
			results[id] = result
		}
	}
	return results
}

// Parallel creates a composite suite that executes its suites concurrently.
// All suites run to completion regardless of individual failures, and their
// errors are combined. Use this when suites are independent, for example
// probing several hosts at once.
func Parallel(suites ...Suite) Suite {
	return &parallelSuite{
		suites: suites,
	}
}

// parallelSuite executes multiple suites concurrently.
type parallelSuite struct {
	suites []Suite
}

// Execute runs all suites concurrently and waits for every one to finish.
// Returns the combined errors of the suites that failed.
func (p *parallelSuite) Execute(ctx context.Context) error {
	executor := pool.New().WithContext(ctx)
	for _, s := range p.suites {
		executor.Go(s.Execute)
	}
	return executor.Wait()
}

// GetAllResults returns all step results from all parallel suites.
func (p *parallelSuite) GetAllResults() map[StepID]*Result {
	results := make(map[StepID]*Result)
	for _, s := range p.suites {
		for id, result := range s.GetAllResults() {
			results[id] = result
		}
	}
	return results
}
