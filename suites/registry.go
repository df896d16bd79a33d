package suites

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/nomis52/goharness/harness"
)

// ErrUnknownSuite is returned when a suite name has no registered builder.
var ErrUnknownSuite = errors.New("unknown suite")

// Builder constructs a suite from common parameters. Suite-specific settings
// come from the options map in the configuration, decoded via DecodeOptions.
type Builder func(params Params) (harness.Suite, error)

var (
	registryMu sync.RWMutex
	builders   = make(map[string]Builder)
)

// Register makes a suite builder available under the given name.
// Returns an error if the name is empty or already taken.
func Register(name string, builder Builder) error {
	if name == "" {
		return errors.New("suite name cannot be empty")
	}
	if builder == nil {
		return fmt.Errorf("builder for suite %s cannot be nil", name)
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := builders[name]; exists {
		return fmt.Errorf("suite %s is already registered", name)
	}
	builders[name] = builder
	return nil
}

// Build constructs the named suite.
// Returns ErrUnknownSuite if no builder is registered under the name.
func Build(name string, params Params) (harness.Suite, error) {
	registryMu.RLock()
	builder, exists := builders[name]
	registryMu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSuite, name)
	}
	return builder(params)
}

// Exists reports whether a builder is registered under the name.
func Exists(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()

	_, exists := builders[name]
	return exists
}

// Names returns the registered suite names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DecodeOptions decodes the free-form options map for the named suite from
// the configuration into target, which must be a pointer to a struct with
// mapstructure tags. Duration fields accept strings like "30s". A missing
// suite entry or a nil options map leaves target's zero values in place.
func DecodeOptions(params Params, suiteName string, target interface{}) error {
	var options map[string]interface{}
	if params.Config != nil {
		if sc, exists := params.Config.Suites[suiteName]; exists {
			options = sc.Options
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     target,
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("failed to create options decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return fmt.Errorf("invalid options for suite %s: %w", suiteName, err)
	}
	return nil
}
