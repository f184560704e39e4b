// =============================================================================
// CONFIGURATION
// =============================================================================
//
// Knobs for the proposer and the demo cluster. Values come from defaults,
// then PAXOS_* environment variables, then command-line flags in cmd/demo.
//
//   PAXOS_NODE_ID=1
//   PAXOS_ACCEPTORS=5
//   PAXOS_PHASE_TIMEOUT=500ms
//   PAXOS_MAX_ATTEMPTS=0          (0 retries forever)
//   PAXOS_LOG_LEVEL=debug
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "PAXOS"

type Config struct {
	NodeID    uint64 `envconfig:"NODE_ID" default:"1"`
	Acceptors int    `envconfig:"ACCEPTORS" default:"3"`

	// PhaseTimeout bounds each prepare or accept phase. Zero waits forever.
	PhaseTimeout time.Duration `envconfig:"PHASE_TIMEOUT" default:"2s"`
	// MaxAttempts caps prepares per client value. Zero is unlimited.
	MaxAttempts   int           `envconfig:"MAX_ATTEMPTS" default:"5"`
	TickInterval  time.Duration `envconfig:"TICK_INTERVAL" default:"100ms"`
	RetryInterval time.Duration `envconfig:"RETRY_INTERVAL" default:"250ms"`

	QueueSize int    `envconfig:"QUEUE_SIZE" default:"64"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
}

func Default() Config {
	return Config{
		NodeID:        1,
		Acceptors:     3,
		PhaseTimeout:  2 * time.Second,
		MaxAttempts:   5,
		TickInterval:  100 * time.Millisecond,
		RetryInterval: 250 * time.Millisecond,
		QueueSize:     64,
		LogLevel:      "info",
	}
}

// Load reads PAXOS_* variables over the defaults and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Acceptors < 1 {
		errs = append(errs, fmt.Errorf("acceptors must be positive, got %d", c.Acceptors))
	}
	if c.PhaseTimeout < 0 {
		errs = append(errs, fmt.Errorf("phase timeout must not be negative, got %s", c.PhaseTimeout))
	}
	if c.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("max attempts must not be negative, got %d", c.MaxAttempts))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick interval must be positive, got %s", c.TickInterval))
	}
	if c.RetryInterval <= 0 {
		errs = append(errs, fmt.Errorf("retry interval must be positive, got %s", c.RetryInterval))
	}
	if c.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("queue size must be positive, got %d", c.QueueSize))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
