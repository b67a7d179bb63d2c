// Package config defines service configuration and its loading.
//
// Keys are flat so the same name works in YAML and as TRIAGE_<KEY> in the
// environment. Durations accept Go syntax ("30s", "2m").
package config

import (
	"fmt"
	"runtime"
	"time"
	_ "time/tzdata" // zone database for hosts without one

	"github.com/robfig/cron/v3"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory push update queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of board workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds how many push event IDs are remembered.
	DedupeSize int `koanf:"dedupe_size"`
	// MaxQueueLimit caps GET /queue/*?limit.
	MaxQueueLimit int `koanf:"max_queue_limit"`

	// BackendURL is the sales backend base URL. Empty disables polling.
	BackendURL     string        `koanf:"backend_url"`
	BackendToken   string        `koanf:"backend_token"`
	BackendTimeout time.Duration `koanf:"backend_timeout"`
	// PollSchedule is a cron spec with seconds, or a descriptor like "@every 30s".
	PollSchedule string `koanf:"poll_schedule"`

	// EvaluatorID identifies whose pending queue and push channel we follow.
	EvaluatorID string `koanf:"evaluator_id"`
	// DefaultApprovalLimit is used until the backend reports the real one.
	DefaultApprovalLimit float64 `koanf:"default_approval_limit"`
	// Timezone is the IANA zone the backend's naive timestamps are written in.
	Timezone string `koanf:"timezone"`

	// FeedURL is the backend WebSocket base, e.g. "ws://host/ws". Empty disables the feed.
	FeedURL string `koanf:"feed_url"`
	// Reconnect backoff for the push feed.
	FeedBackoffInitial    time.Duration `koanf:"feed_backoff_initial"`
	FeedBackoffMax        time.Duration `koanf:"feed_backoff_max"`
	FeedBackoffMultiplier float64       `koanf:"feed_backoff_multiplier"`
	// FeedMaxAttempts stops reconnecting after this many failures in a row; 0 retries forever.
	FeedMaxAttempts int `koanf:"feed_max_attempts"`
	// FeedStableAfter is how long a connection must last to reset the attempt count.
	FeedStableAfter time.Duration `koanf:"feed_stable_after"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		QueueSize:             10_000,
		WorkerCount:           runtime.NumCPU() * 2,
		DedupeSize:            50_000,
		MaxQueueLimit:         500,
		BackendTimeout:        10 * time.Second,
		PollSchedule:          "@every 30s",
		DefaultApprovalLimit:  5000,
		Timezone:              "America/Lima",
		FeedBackoffInitial:    time.Second,
		FeedBackoffMax:        30 * time.Second,
		FeedBackoffMultiplier: 2,
		FeedMaxAttempts:       0,
		FeedStableAfter:       10 * time.Second,
	}
}

// Validate reports the first invalid setting wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.MaxQueueLimit <= 0:
		return fmt.Errorf("%w: max_queue_limit must be positive", ErrInvalidConfig)
	case c.DefaultApprovalLimit <= 0:
		return fmt.Errorf("%w: default_approval_limit must be positive", ErrInvalidConfig)
	case c.BackendTimeout <= 0:
		return fmt.Errorf("%w: backend_timeout must be positive", ErrInvalidConfig)
	case c.FeedBackoffInitial <= 0 || c.FeedBackoffMax < c.FeedBackoffInitial:
		return fmt.Errorf("%w: feed backoff needs 0 < initial <= max", ErrInvalidConfig)
	case c.FeedBackoffMultiplier < 1:
		return fmt.Errorf("%w: feed_backoff_multiplier must be >= 1", ErrInvalidConfig)
	case c.FeedMaxAttempts < 0:
		return fmt.Errorf("%w: feed_max_attempts must not be negative", ErrInvalidConfig)
	case c.FeedStableAfter < 0:
		return fmt.Errorf("%w: feed_stable_after must not be negative", ErrInvalidConfig)
	case c.FeedURL != "" && c.EvaluatorID == "":
		return fmt.Errorf("%w: feed_url requires evaluator_id", ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: timezone: %v", ErrInvalidConfig, err)
	}
	if c.BackendURL != "" {
		if _, err := ParseSchedule(c.PollSchedule); err != nil {
			return fmt.Errorf("%w: poll_schedule: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Location resolves Timezone; an empty value means the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ParseSchedule accepts a five field cron spec, a six field spec with
// leading seconds, or a descriptor such as "@every 30s".
func ParseSchedule(spec string) (cron.Schedule, error) {
	if sched, err := cron.ParseStandard(spec); err == nil {
		return sched, nil
	}
	return secondsParser.Parse(spec)
}

//nolint:gochecknoglobals // parser matching cron.WithSeconds
var secondsParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)
