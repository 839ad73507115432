// Package config holds the settings for simulation runs and the API server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/me/schedsim/internal/logging"
)

// DefaultMaxTicks bounds a run so that a deadlocked workload terminates.
const DefaultMaxTicks = 10000

// SimConfig holds configuration for one simulation run.
type SimConfig struct {
	Policy          string `yaml:"policy"`           // Registry name (default "fcfs")
	MaxTicks        int    `yaml:"max_ticks"`        // Tick limit (default 10000)
	Quiet           bool   `yaml:"quiet"`            // Suppress the per-tick timeline
	Dump            bool   `yaml:"dump"`             // Print the status dump every tick
	CheckInvariants bool   `yaml:"check_invariants"` // Verify queue and ownership invariants each tick
	Script          string `yaml:"script"`           // Key expression for the script policy
	LogLevel        string `yaml:"log_level"`        // debug, info, warn, error
	LogFormat       string `yaml:"log_format"`       // text, json
	DBPath          string `yaml:"db"`               // Run store path, empty to skip saving
	TraceFile       string `yaml:"trace_file"`       // OpenTelemetry span output, empty for none
}

// DefaultSimConfig returns sensible defaults.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Policy:          "fcfs",
		MaxTicks:        DefaultMaxTicks,
		CheckInvariants: true,
		LogLevel:        "warn",
		LogFormat:       logging.FormatText,
	}
}

// LoadSimConfig reads a YAML file over the defaults. Keys absent from the
// file keep their default values.
func LoadSimConfig(path string) (SimConfig, error) {
	cfg := DefaultSimConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field.
func (c SimConfig) Validate() error {
	var errs []error
	if c.Policy == "" {
		errs = append(errs, errors.New("policy: must not be empty"))
	}
	if c.Policy == "script" && c.Script == "" {
		errs = append(errs, errors.New("script: required by the script policy"))
	}
	if c.MaxTicks <= 0 {
		errs = append(errs, fmt.Errorf("max_ticks: must be positive, got %d", c.MaxTicks))
	}
	errs = append(errs, validateLogging(c.LogLevel, c.LogFormat)...)
	return errors.Join(errs...)
}

// ServerConfig holds configuration for the schedsim API server.
type ServerConfig struct {
	Addr      string // Listen address (default ":8080")
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: text, json
	DBPath    string // SQLite database path (default ~/.schedsim/runs.db, ":memory:" for testing)
	MaxTicks  int    // Tick limit applied to submitted workloads
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:      ":8080",
		LogLevel:  "info",
		LogFormat: logging.FormatText,
		DBPath:    DefaultDBPath(),
		MaxTicks:  DefaultMaxTicks,
	}
}

// Validate reports every invalid field.
func (c ServerConfig) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr: must not be empty"))
	}
	if c.MaxTicks <= 0 {
		errs = append(errs, fmt.Errorf("max_ticks: must be positive, got %d", c.MaxTicks))
	}
	errs = append(errs, validateLogging(c.LogLevel, c.LogFormat)...)
	return errors.Join(errs...)
}

// DefaultDBPath returns ~/.schedsim/runs.db, or a relative path when the
// home directory is unknown.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "schedsim.db"
	}
	return filepath.Join(home, ".schedsim", "runs.db")
}

func validateLogging(level, format string) []error {
	var errs []error
	if _, err := logging.LookupLevel(level); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if !logging.ValidFormat(format) {
		errs = append(errs, fmt.Errorf("log_format: unknown format %q", format))
	}
	return errs
}
