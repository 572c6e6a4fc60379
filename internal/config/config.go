// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ServerURL is the base URL client commands talk to.
	ServerURL string `koanf:"server_url"`

	// QueueSize bounds the in-memory intent queue.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize sets how many intent IDs are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// RemovalDelayMS is the exit delay between a delete and the removal.
	RemovalDelayMS int `koanf:"removal_delay_ms"`

	// StrictIndices panics on out-of-range positional intents.
	StrictIndices bool `koanf:"strict_indices"`

	// SeedFile optionally points at a snapshot document used at startup.
	SeedFile string `koanf:"seed_file"`

	// StartDate and EndDate are the reporting period shown with the board.
	StartDate string `koanf:"start_date"`
	EndDate   string `koanf:"end_date"`

	// RequestTimeoutMS bounds client requests.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`
}

// New creates a Config with defaults. The context is reserved for loaders.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		ServerURL:        "http://localhost:9080",
		QueueSize:        1024,
		DedupeSize:       4096,
		RemovalDelayMS:   300,
		StartDate:        "10/01/25",
		EndDate:          "10/31/25",
		RequestTimeoutMS: 5000,
	}
}

// RemovalDelay returns the exit delay as a duration.
func (c *Config) RemovalDelay() time.Duration {
	return time.Duration(c.RemovalDelayMS) * time.Millisecond
}

// RequestTimeout returns the client timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.DedupeSize < 0:
		return fmt.Errorf("%w: dedupe_size must not be negative, got %d", ErrInvalidConfig, c.DedupeSize)
	case c.RemovalDelayMS < 0:
		return fmt.Errorf("%w: removal_delay_ms must not be negative, got %d", ErrInvalidConfig, c.RemovalDelayMS)
	case c.RequestTimeoutMS <= 0:
		return fmt.Errorf("%w: request_timeout_ms must be positive, got %d", ErrInvalidConfig, c.RequestTimeoutMS)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return nil
}
