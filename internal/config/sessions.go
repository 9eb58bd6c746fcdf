package config

import (
	"os"
	"time"
)

const (
	EnvSessionsIdleTimeout   = "SESSIONS_IDLE_TIMEOUT"
	EnvSessionsSweepInterval = "SESSIONS_SWEEP_INTERVAL"
)

// SessionsConfig controls idle eviction of cached conversion sessions.
type SessionsConfig struct {
	IdleTimeout   string `toml:"idle_timeout"`
	SweepInterval string `toml:"sweep_interval"`
}

func (c *SessionsConfig) IdleTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.IdleTimeout)
	return d
}

func (c *SessionsConfig) SweepIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.SweepInterval)
	return d
}

// Finalize applies defaults, loads environment overrides, and validates the sessions configuration.
func (c *SessionsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

func (c *SessionsConfig) Merge(overlay *SessionsConfig) {
	if overlay.IdleTimeout != "" {
		c.IdleTimeout = overlay.IdleTimeout
	}
	if overlay.SweepInterval != "" {
		c.SweepInterval = overlay.SweepInterval
	}
}

func (c *SessionsConfig) loadDefaults() {
	if c.IdleTimeout == "" {
		c.IdleTimeout = "10m"
	}
	if c.SweepInterval == "" {
		c.SweepInterval = "1m"
	}
}

func (c *SessionsConfig) loadEnv() {
	if v := os.Getenv(EnvSessionsIdleTimeout); v != "" {
		c.IdleTimeout = v
	}
	if v := os.Getenv(EnvSessionsSweepInterval); v != "" {
		c.SweepInterval = v
	}
}

func (c *SessionsConfig) validate() error {
	if err := parseDuration("idle_timeout", c.IdleTimeout); err != nil {
		return err
	}
	return parseDuration("sweep_interval", c.SweepInterval)
}
