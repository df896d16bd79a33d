// Package config provides the server runtime configuration. This is separate
// from the harness configuration, which describes suites and is reloadable at
// runtime; the server configuration is read once at startup.
//
// Every field can be overridden through GOHARNESS_* environment variables,
// which take precedence over the YAML file.
package config

import (
	"fmt"
	"os"
	"slices"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr  = ":8080"
	defaultMaxRuns     = 100
	defaultRunsPerMin  = 6
	defaultRunBurst    = 2
	defaultHistoryMode = "memory"
)

// historyBackends are the supported run history stores.
var historyBackends = []string{"memory", "disk", "valkey"}

// ServerConfig represents the server runtime configuration.
type ServerConfig struct {
	Listener ListenerConfig `yaml:"listener"`
	History  HistoryConfig  `yaml:"history"`
	Cron     []CronTrigger  `yaml:"cron"`
	TLS      TLSConfig      `yaml:"tls"`

	// LogLevel sets the startup log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level" env:"GOHARNESS_LOG_LEVEL"`

	// HarnessConfig is the path to the harness (suite) config file.
	HarnessConfig string `yaml:"harness_config" env:"GOHARNESS_CONFIG"`

	// RunsPerMinute rate-limits POST /run. Defaults to 6.
	RunsPerMinute float64 `yaml:"runs_per_minute" env:"GOHARNESS_RUNS_PER_MINUTE"`

	// RunBurst is the rate limiter burst for POST /run.
	RunBurst int `yaml:"run_burst" env:"GOHARNESS_RUN_BURST"`
}

// ListenerConfig holds HTTP server listener settings.
type ListenerConfig struct {
	// Addr is the listen address, defaults to :8080.
	Addr string `yaml:"addr" env:"GOHARNESS_LISTEN_ADDR"`
}

// HistoryConfig selects and tunes the run history store.
type HistoryConfig struct {
	// Backend is one of memory, disk, valkey.
	Backend string `yaml:"backend" env:"GOHARNESS_HISTORY_BACKEND"`

	// StateDir is the directory for the disk backend.
	StateDir string `yaml:"state_dir" env:"GOHARNESS_STATE_DIR"`

	// MaxRuns caps the number of retained runs for disk and valkey backends.
	MaxRuns int `yaml:"max_runs" env:"GOHARNESS_MAX_RUNS"`

	// ValkeyAddresses are the valkey endpoints for the valkey backend.
	ValkeyAddresses []string `yaml:"valkey_addresses" env:"GOHARNESS_VALKEY_ADDRESSES"`

	// ValkeyUsername and ValkeyPassword authenticate the valkey backend.
	ValkeyUsername string `yaml:"valkey_username" env:"GOHARNESS_VALKEY_USERNAME"`
	ValkeyPassword string `yaml:"valkey_password" env:"GOHARNESS_VALKEY_PASSWORD"`
}

// CronTrigger defines a set of suites to run on a schedule.
type CronTrigger struct {
	// Suites are the suite names to run when the trigger fires.
	Suites []string `yaml:"suites"`
	// Schedule is the cron expression (5 fields) for the trigger.
	Schedule string `yaml:"schedule"`
}

// TLSConfig enables HTTPS when both paths are set. The certificate is
// re-read when the files change on disk.
type TLSConfig struct {
	CertFile string `yaml:"cert_file" env:"GOHARNESS_TLS_CERT"`
	KeyFile  string `yaml:"key_file" env:"GOHARNESS_TLS_KEY"`
}

// Enabled reports whether TLS is configured.
func (t TLSConfig) Enabled() bool {
	return t.CertFile != "" && t.KeyFile != ""
}

// LoadConfig reads the YAML config file at the given path, applies GOHARNESS_*
// environment overrides, and returns a validated ServerConfig.
func LoadConfig(path string) (*ServerConfig, error) {
	var cfg ServerConfig
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open server config file %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode YAML server config: %w", err)
	}

	// Environment variables override the file
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults sets reasonable default values for optional fields.
func (c *ServerConfig) SetDefaults() {
	if c.Listener.Addr == "" {
		c.Listener.Addr = defaultListenAddr
	}
	if c.History.Backend == "" {
		c.History.Backend = defaultHistoryMode
	}
	if c.History.MaxRuns == 0 {
		c.History.MaxRuns = defaultMaxRuns
	}
	if c.RunsPerMinute == 0 {
		c.RunsPerMinute = defaultRunsPerMin
	}
	if c.RunBurst == 0 {
		c.RunBurst = defaultRunBurst
	}
}

// Validate checks the configuration for errors.
func (c *ServerConfig) Validate() error {
	if c.HarnessConfig == "" {
		return fmt.Errorf("harness_config path is required")
	}
	if !slices.Contains(historyBackends, c.History.Backend) {
		return fmt.Errorf("history backend must be one of memory, disk, valkey, got %q", c.History.Backend)
	}
	if c.History.Backend == "disk" && c.History.StateDir == "" {
		return fmt.Errorf("history state_dir is required for the disk backend")
	}
	if c.History.Backend == "valkey" && len(c.History.ValkeyAddresses) == 0 {
		return fmt.Errorf("history valkey_addresses is required for the valkey backend")
	}
	if c.History.MaxRuns < 0 {
		return fmt.Errorf("history max_runs cannot be negative")
	}
	if c.RunsPerMinute < 0 {
		return fmt.Errorf("runs_per_minute cannot be negative")
	}
	for i, trigger := range c.Cron {
		if len(trigger.Suites) == 0 {
			return fmt.Errorf("cron trigger %d has no suites", i)
		}
		if trigger.Schedule == "" {
			return fmt.Errorf("cron trigger %d has no schedule", i)
		}
	}
	return nil
}
