// Package web provides the web suite. It probes one or more HTTP endpoints
// and fails if any of them is unhealthy.
package web

import (
	"fmt"

	"github.com/nomis52/goharness/harness"
	"github.com/nomis52/goharness/steps/probe"
	"github.com/nomis52/goharness/suites"
)

// Name is the registry name for the web suite.
const Name = "web"

// Options holds the web suite settings from the suite's options map.
type Options struct {
	// URLs are the endpoints to probe.
	URLs []string `mapstructure:"urls"`

	// ExpectStatus is the HTTP status every endpoint must return.
	// Defaults to 200 when zero.
	ExpectStatus int `mapstructure:"expect_status"`

	// BodyContains is an optional substring every response body must contain.
	BodyContains string `mapstructure:"body_contains"`
}

// New creates a web suite with a single probe step covering all endpoints.
func New(params suites.Params) (harness.Suite, error) {
	var opts Options
	if err := suites.DecodeOptions(params, Name, &opts); err != nil {
		return nil, err
	}

	if len(opts.URLs) == 0 {
		return nil, fmt.Errorf("web suite requires at least one entry in the urls option")
	}

	// Create orchestrator with config and logger options
	orchOpts := []harness.Option{harness.WithLogger(params.Logger)}
	if params.Config != nil {
		orchOpts = append(orchOpts, harness.WithConfig(params.Config))
	}
	o := harness.NewOrchestrator(orchOpts...)

	// Inject common factories (logger, metrics registry, status line)
	params.InjectInto(o)

	if err := o.AddStep(&probe.Probe{
		URLs:         opts.URLs,
		ExpectStatus: opts.ExpectStatus,
		BodyContains: opts.BodyContains,
	}); err != nil {
		return nil, err
	}

	return o, nil
}
