package observability

import (
	"fmt"
	"time"

	"github.com/JaimeStill/microfinder/pkg/envvar"
)

// Config controls error reporting. Metrics are always collected.
type Config struct {
	SentryDSN        string  `toml:"sentry_dsn"`
	Environment      string  `toml:"environment"`
	Release          string  `toml:"release"`
	TracesSampleRate float64 `toml:"traces_sample_rate"`
	FlushTimeout     string  `toml:"flush_timeout"`
}

type Env struct {
	SentryDSN        string
	Environment      string
	Release          string
	TracesSampleRate string
	FlushTimeout     string
}

func (c *Config) FlushTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.FlushTimeout)
	return d
}

func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

func (c *Config) Merge(overlay *Config) {
	if overlay.SentryDSN != "" {
		c.SentryDSN = overlay.SentryDSN
	}
	if overlay.Environment != "" {
		c.Environment = overlay.Environment
	}
	if overlay.Release != "" {
		c.Release = overlay.Release
	}
	if overlay.TracesSampleRate != 0 {
		c.TracesSampleRate = overlay.TracesSampleRate
	}
	if overlay.FlushTimeout != "" {
		c.FlushTimeout = overlay.FlushTimeout
	}
}

func (c *Config) loadDefaults() {
	if c.Environment == "" {
		c.Environment = "local"
	}
	if c.FlushTimeout == "" {
		c.FlushTimeout = "2s"
	}
}

func (c *Config) loadEnv(env *Env) {
	envvar.String(&c.SentryDSN, env.SentryDSN)
	envvar.String(&c.Environment, env.Environment)
	envvar.String(&c.Release, env.Release)
	envvar.Float(&c.TracesSampleRate, env.TracesSampleRate)
	envvar.Duration(&c.FlushTimeout, env.FlushTimeout)
}

func (c *Config) validate() error {
	if c.TracesSampleRate < 0 || c.TracesSampleRate > 1 {
		return fmt.Errorf("traces_sample_rate must be within [0, 1]: %v", c.TracesSampleRate)
	}
	if _, err := time.ParseDuration(c.FlushTimeout); err != nil {
		return fmt.Errorf("invalid flush_timeout: %w", err)
	}
	return nil
}
