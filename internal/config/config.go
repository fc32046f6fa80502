// Package config loads the qops CLI configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for its configuration file.
var DefaultPath = filepath.Join(".qops", "config.yaml")

// Config represents qops CLI configuration options
type Config struct {
	// DBPath is the path to the SQLite database
	DBPath string `yaml:"db_path"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// DefaultProject is used when --project is not given
	DefaultProject string `yaml:"default_project"`

	// StrictMetrics enables percentile ordering and failure rate checks on load summaries
	StrictMetrics bool `yaml:"strict_metrics"`

	// FailureRateTolerance is the allowed failure rate gap in percentage points
	FailureRateTolerance float64 `yaml:"failure_rate_tolerance"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		DBPath:   filepath.Join(".qops", "qops.db"),
		LogLevel: "info",
	}
}

// LoadConfig reads the configuration at path, falling back to defaults for
// a missing file or unset keys.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if fileCfg.DBPath != "" {
		cfg.DBPath = fileCfg.DBPath
	}
	if fileCfg.LogLevel != "" {
		cfg.LogLevel = fileCfg.LogLevel
	}
	if fileCfg.DefaultProject != "" {
		cfg.DefaultProject = fileCfg.DefaultProject
	}
	cfg.StrictMetrics = fileCfg.StrictMetrics
	if fileCfg.FailureRateTolerance != 0 {
		cfg.FailureRateTolerance = fileCfg.FailureRateTolerance
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.FailureRateTolerance < 0 {
		return fmt.Errorf("failure_rate_tolerance must be non-negative, got %g", c.FailureRateTolerance)
	}
	return nil
}
