// Package loadtest drives a running recap server with concurrent intents and
// checks that the published board stays consistent.
package loadtest

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInconsistent is returned when the final board does not match the plan.
var ErrInconsistent = errors.New("board is inconsistent")

// Config holds configuration for a load run
type Config struct {
	BaseURL     string        // Base URL of the server
	Cappers     int           // Number of cappers to add
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	ReplayEvery int           // Replay every n-th add with the same key; 0 disables
	Cleanup     bool          // Delete the added cappers at the end
	Verbose     bool          // Log every failed request
}

// Planned is one capper the run adds and edits.
type Planned struct {
	AddKey    string
	NameKey   string
	CommitKey string
	Name      string
	Units     decimal.Decimal

	// ID is filled in once the add is acknowledged.
	ID        string
	Committed bool
}

// Stats holds run statistics
type Stats struct {
	Planned    int
	Added      int
	Duplicates int
	Commits    int
	Deleted    int
	Failed     int
	Rows       int
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}
