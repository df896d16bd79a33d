package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// redactedPlaceholder replaces credential values in redacted output.
const redactedPlaceholder = "xxxxx"

const (
	// Default step settings
	defaultScriptTimeout = 30 * time.Second
	defaultProbeTimeout  = 10 * time.Second

	// Default monitoring settings
	defaultMetricsPrefix = "goharness"
	defaultJobName       = "goharness"

	// Default artifact settings
	defaultArtifactPrefix = "runs"

	// Default logging settings
	defaultLogLevel  = "info"
	defaultLogFormat = "json"
	defaultLogOutput = "stdout"
)

// Config represents the complete harness configuration
type Config struct {
	Logging    LoggingConfig          `yaml:"logging"`
	Monitoring MonitoringConfig       `yaml:"monitoring"`
	Artifacts  ArtifactsConfig        `yaml:"artifacts"`
	Scripts    ScriptsConfig          `yaml:"scripts"`
	Probes     ProbesConfig           `yaml:"probes"`
	Suites     map[string]SuiteConfig `yaml:"suites"`
}

// LoggingConfig defines logging behavior settings
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	Output    string `yaml:"output"`
	AddSource bool   `yaml:"add_source"`
}

// MonitoringConfig holds metrics and monitoring settings
type MonitoringConfig struct {
	// PushURL is the Prometheus remote write endpoint. Push is disabled when empty.
	PushURL       string `yaml:"push_url"`
	MetricsPrefix string `yaml:"metrics_prefix"`
	JobName       string `yaml:"jobname"`
}

// ArtifactsConfig holds run artifact upload settings
type ArtifactsConfig struct {
	// Bucket is the S3 bucket for run artifacts. Upload is disabled when empty.
	Bucket string `yaml:"bucket"`
	// Prefix is the object key prefix under the bucket.
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
	// Endpoint overrides the S3 endpoint for S3-compatible stores.
	Endpoint string `yaml:"endpoint"`
}

// ScriptsConfig holds settings for script check steps
type ScriptsConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// ProbesConfig holds settings for HTTP probe steps
type ProbesConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// SuiteConfig holds per-suite settings
type SuiteConfig struct {
	// Options holds free-form settings specific to the suite. The suite
	// builder decodes them into its own typed options.
	Options map[string]interface{} `yaml:"options"`
}

// Validate performs basic validation on the configuration
func (c *Config) Validate() error {
	if len(c.Suites) == 0 {
		return fmt.Errorf("at least one suite must be configured")
	}
	if c.Scripts.Timeout < 0 {
		return fmt.Errorf("script timeout must not be negative")
	}
	if c.Probes.Timeout < 0 {
		return fmt.Errorf("probe timeout must not be negative")
	}
	return nil
}

// SetDefaults sets reasonable default values for optional fields
func (c *Config) SetDefaults() {
	if c.Scripts.Timeout == 0 {
		c.Scripts.Timeout = defaultScriptTimeout
	}
	if c.Probes.Timeout == 0 {
		c.Probes.Timeout = defaultProbeTimeout
	}
	if c.Monitoring.MetricsPrefix == "" {
		c.Monitoring.MetricsPrefix = defaultMetricsPrefix
	}
	if c.Monitoring.JobName == "" {
		c.Monitoring.JobName = defaultJobName
	}
	if c.Artifacts.Prefix == "" {
		c.Artifacts.Prefix = defaultArtifactPrefix
	}
	// Set logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Output == "" {
		c.Logging.Output = defaultLogOutput
	}
}

// Redacted returns a copy of the configuration with credentials masked,
// suitable for exposing over the config endpoint.
func (c Config) Redacted() Config {
	redacted := c
	redacted.Monitoring.PushURL = redactURL(c.Monitoring.PushURL)
	return redacted
}

// redactURL masks the password in a URL's userinfo, if present. Unparseable
// values are returned unchanged.
func redactURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), redactedPlaceholder)
	}
	return u.String()
}

// LoadConfig reads the YAML config file at the given path and returns a Config struct
func LoadConfig(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
