// Package device provides the device health suite. It connects to a device
// over SSH, gathers host facts, and optionally evaluates a JavaScript check
// against them.
package device

import (
	"fmt"
	"os"
	"time"

	"github.com/nomis52/goharness/clients/sshclient"
	"github.com/nomis52/goharness/harness"
	"github.com/nomis52/goharness/steps/hostcheck"
	"github.com/nomis52/goharness/steps/script"
	"github.com/nomis52/goharness/suites"
)

// Name is the registry name for the device suite.
const Name = "device"

// Options holds the device suite settings from the suite's options map.
type Options struct {
	// Address is the host:port of the device's SSH endpoint.
	Address string `mapstructure:"address"`

	// User is the SSH login user.
	User string `mapstructure:"user"`

	// PrivateKeyPath is the path to the SSH private key file.
	PrivateKeyPath string `mapstructure:"private_key_path"`

	// DialTimeout bounds the SSH dial and handshake. Zero means no timeout.
	DialTimeout time.Duration `mapstructure:"dial_timeout"`

	// Commands are the fact-gathering commands to run on the device.
	// Defaults to the hostcheck command set when empty.
	Commands []string `mapstructure:"commands"`

	// Script is an optional JavaScript check evaluated against the gathered
	// facts. When empty the suite only connects and gathers facts.
	Script string `mapstructure:"script"`
}

// New creates a device suite: ConnectHost, then HostInfo, then an optional
// script check over the gathered facts.
func New(params suites.Params) (harness.Suite, error) {
	var opts Options
	if err := suites.DecodeOptions(params, Name, &opts); err != nil {
		return nil, err
	}

	if opts.Address == "" {
		return nil, fmt.Errorf("device suite requires the address option")
	}
	if opts.User == "" {
		return nil, fmt.Errorf("device suite requires the user option")
	}
	if opts.PrivateKeyPath == "" {
		return nil, fmt.Errorf("device suite requires the private_key_path option")
	}

	key, err := os.ReadFile(opts.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	dialer := hostcheck.NewSSHDialer(sshclient.Config{
		Address:       opts.Address,
		User:          opts.User,
		PrivateKeyPEM: key,
		DialTimeout:   opts.DialTimeout,
	})

	// Create orchestrator with config and logger options
	orchOpts := []harness.Option{harness.WithLogger(params.Logger)}
	if params.Config != nil {
		orchOpts = append(orchOpts, harness.WithConfig(params.Config))
	}
	o := harness.NewOrchestrator(orchOpts...)

	// Inject common factories (logger, metrics registry, status line)
	params.InjectInto(o)

	// All steps share one dialer so they hit the same endpoint
	harness.Provide(o, harness.Shared[hostcheck.Dialer](dialer))

	connect := &hostcheck.ConnectHost{}
	info := &hostcheck.HostInfo{Commands: opts.Commands}

	steps := []harness.Step{connect, info}
	if opts.Script != "" {
		// The facts reference doubles as an ordering edge: the check runs
		// only after HostInfo has populated its outputs.
		steps = append(steps, &script.Check{Source: opts.Script, Facts: info})
	}

	if err := o.AddStep(steps...); err != nil {
		return nil, err
	}

	return o, nil
}
