// Package seed drives a running inkscore server over HTTP: it registers
// contestants and judges, submits every evaluation concurrently, replays a
// few duplicates and checks the served leaderboard against a local
// consolidation of what was admitted.
package seed

import (
	"errors"
	"time"
)

// Defaults used when a Config field is zero.
const (
	DefaultBaseURL     = "http://localhost:9080"
	DefaultContestants = 20
	DefaultJudges      = 5
	DefaultDuplicates  = 10
	DefaultWorkers     = 8
	DefaultTimeout     = 10 * time.Second
)

// Sentinel errors.
var (
	ErrUnhealthy    = errors.New("service is not healthy")
	ErrUnexpected   = errors.New("unexpected response")
	ErrVerification = errors.New("leaderboard verification failed")
)

// Config holds configuration for a seed run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Contestants int           // Contestants to register
	Judges      int           // Judges to register
	Duplicates  int           // Admitted evaluations to resubmit
	Workers     int           // Concurrent requests
	Timeout     time.Duration // HTTP request timeout
	Seed        uint64        // Score generator seed; 0 picks one from the clock
	Reset       bool          // POST /reset before seeding
	Verbose     bool          // Log every request
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = DefaultBaseURL
	}
	if out.Contestants <= 0 {
		out.Contestants = DefaultContestants
	}
	if out.Judges <= 0 {
		out.Judges = DefaultJudges
	}
	if out.Duplicates < 0 {
		out.Duplicates = 0
	}
	if out.Workers <= 0 {
		out.Workers = DefaultWorkers
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.Seed == 0 {
		out.Seed = uint64(time.Now().UnixNano())
	}
	return out
}

// Stats holds run statistics.
type Stats struct {
	ContestantsRegistered int
	JudgesRegistered      int
	EvaluationsSubmitted  int
	EvaluationsAdmitted   int
	EvaluationsFailed     int
	DuplicatesRejected    int
	DuplicatesAccepted    int
	LeaderboardEntries    int
	EntriesVerified       int
	StartTime             time.Time
	EndTime               time.Time
	Duration              time.Duration
}
