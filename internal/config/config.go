// Package config defines service configuration and how it is loaded.
//
// Conventions:
// - New returns a Config populated with defaults.
// - Load layers a YAML file and INKSCORE_ env vars on top of the defaults.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/okian/inkscore/pkg/retry"
)

// Storage drivers accepted by storage_driver.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StorageDriver picks the durable backend.
	StorageDriver string `koanf:"storage_driver"`

	// StoragePath is the state file used by the file driver.
	StoragePath string `koanf:"storage_path"`

	// DatabaseURL is the DSN for the sqlite and postgres drivers.
	DatabaseURL string `koanf:"database_url"`

	// RulesFile optionally replaces the built-in rule set.
	RulesFile string `koanf:"rules_file"`

	// SyncQueueSize bounds pending snapshots waiting for persistence.
	SyncQueueSize int `koanf:"sync_queue_size"`

	PersistMaxAttempts       int     `koanf:"persist_max_attempts"`
	PersistInitialBackoffMS  int     `koanf:"persist_initial_backoff_ms"`
	PersistMaxBackoffMS      int     `koanf:"persist_max_backoff_ms"`
	PersistBackoffMultiplier float64 `koanf:"persist_backoff_multiplier"`
	PersistJitter            bool    `koanf:"persist_jitter"`
	PersistTimeoutMS         int     `koanf:"persist_timeout_ms"`

	// PersistRatePerSec and PersistBurst throttle backend writes.
	PersistRatePerSec float64 `koanf:"persist_rate_per_sec"`
	PersistBurst      int     `koanf:"persist_burst"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// NotificationHistory is how many notifications GET /notifications can return.
	NotificationHistory int `koanf:"notification_history"`

	// TraceExporter is "none" or "stdout".
	TraceExporter string `koanf:"trace_exporter"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                 "info",
		LogFormat:                "text",
		Addr:                     ":9080",
		StorageDriver:            DriverFile,
		StoragePath:              "inkscore-state.json",
		SyncQueueSize:            64,
		PersistMaxAttempts:       5,
		PersistInitialBackoffMS:  100,
		PersistMaxBackoffMS:      5000,
		PersistBackoffMultiplier: 2.0,
		PersistJitter:            true,
		PersistTimeoutMS:         3000,
		PersistRatePerSec:        20,
		PersistBurst:             5,
		MaxLeaderboardLimit:      100,
		NotificationHistory:      200,
		TraceExporter:            "none",
	}
}

// RetryPolicy returns the persistence retry policy described by the config.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:     c.PersistMaxAttempts,
		InitialInterval: time.Duration(c.PersistInitialBackoffMS) * time.Millisecond,
		MaxInterval:     time.Duration(c.PersistMaxBackoffMS) * time.Millisecond,
		Multiplier:      c.PersistBackoffMultiplier,
		UseJitter:       c.PersistJitter,
	}
}

// PersistTimeout is the per-attempt save deadline.
func (c *Config) PersistTimeout() time.Duration {
	return time.Duration(c.PersistTimeoutMS) * time.Millisecond
}

// Validate checks the fields that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	drivers := []string{DriverFile, DriverSQLite, DriverPostgres, DriverMemory}
	if !slices.Contains(drivers, c.StorageDriver) {
		return fmt.Errorf("%w %q", ErrUnknownDriver, c.StorageDriver)
	}
	switch c.StorageDriver {
	case DriverFile:
		if c.StoragePath == "" {
			return fmt.Errorf("%w: storage_path is required for the file driver", ErrInvalidConfig)
		}
	case DriverSQLite, DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database_url is required for %s", ErrInvalidConfig, c.StorageDriver)
		}
	}
	if c.SyncQueueSize <= 0 {
		return fmt.Errorf("%w: sync_queue_size must be positive", ErrInvalidConfig)
	}
	if err := c.RetryPolicy().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.PersistTimeoutMS <= 0 {
		return fmt.Errorf("%w: persist_timeout_ms must be positive", ErrInvalidConfig)
	}
	if c.PersistRatePerSec <= 0 || c.PersistBurst <= 0 {
		return fmt.Errorf("%w: persist rate and burst must be positive", ErrInvalidConfig)
	}
	if c.TraceExporter != "none" && c.TraceExporter != "stdout" {
		return fmt.Errorf("%w: unknown trace_exporter %q", ErrInvalidConfig, c.TraceExporter)
	}
	if c.MaxLeaderboardLimit <= 0 {
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	}
	return nil
}
