package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PAXOS_ACCEPTORS", "5")
	t.Setenv("PAXOS_PHASE_TIMEOUT", "500ms")
	t.Setenv("PAXOS_MAX_ATTEMPTS", "0")
	t.Setenv("PAXOS_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Acceptors)
	assert.Equal(t, 500*time.Millisecond, cfg.PhaseTimeout)
	assert.Equal(t, 0, cfg.MaxAttempts)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("PAXOS_PHASE_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no acceptors", func(c *Config) { c.Acceptors = 0 }},
		{"negative timeout", func(c *Config) { c.PhaseTimeout = -time.Second }},
		{"negative attempts", func(c *Config) { c.MaxAttempts = -1 }},
		{"zero tick", func(c *Config) { c.TickInterval = 0 }},
		{"zero retry", func(c *Config) { c.RetryInterval = 0 }},
		{"zero queue", func(c *Config) { c.QueueSize = 0 }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestZeroTimeoutIsValid(t *testing.T) {
	cfg := Default()
	cfg.PhaseTimeout = 0
	assert.NoError(t, cfg.Validate())
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
}
