package auth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/JaimeStill/microfinder/pkg/envvar"
)

// Config points the client at a GoTrue deployment.
type Config struct {
	// URL is the project root, e.g. https://xyz.supabase.co.
	URL            string      `toml:"url"`
	AnonKey        string      `toml:"anon_key"`
	RedirectURL    string      `toml:"redirect_url"`
	Audience       string      `toml:"audience"`
	VerifyTokens   bool        `toml:"verify_tokens"`
	RefreshMargin  string      `toml:"refresh_margin"`
	RetryInterval  string      `toml:"retry_interval"`
	RequestTimeout string      `toml:"request_timeout"`
	Store          StoreConfig `toml:"store"`
}

// StoreConfig selects where the session is persisted. An empty RedisAddr
// keeps the session in memory only.
type StoreConfig struct {
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	Key           string `toml:"key"`
}

// Env names the environment variables that override Config fields.
type Env struct {
	URL            string
	AnonKey        string
	RedirectURL    string
	Audience       string
	VerifyTokens   string
	RefreshMargin  string
	RetryInterval  string
	RequestTimeout string
	RedisAddr      string
	RedisPassword  string
	RedisDB        string
	StoreKey       string
}

func (c *Config) RefreshMarginDuration() time.Duration {
	d, _ := time.ParseDuration(c.RefreshMargin)
	return d
}

func (c *Config) RetryIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.RetryInterval)
	return d
}

func (c *Config) RequestTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	return d
}

// Issuer is the iss claim on tokens minted by the deployment.
func (c *Config) Issuer() string {
	return strings.TrimRight(c.URL, "/") + "/auth/v1"
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. VerifyTokens only turns on.
func (c *Config) Merge(overlay *Config) {
	for _, f := range []struct {
		dst *string
		v   string
	}{
		{&c.URL, overlay.URL},
		{&c.AnonKey, overlay.AnonKey},
		{&c.RedirectURL, overlay.RedirectURL},
		{&c.Audience, overlay.Audience},
		{&c.RefreshMargin, overlay.RefreshMargin},
		{&c.RetryInterval, overlay.RetryInterval},
		{&c.RequestTimeout, overlay.RequestTimeout},
		{&c.Store.RedisAddr, overlay.Store.RedisAddr},
		{&c.Store.RedisPassword, overlay.Store.RedisPassword},
		{&c.Store.Key, overlay.Store.Key},
	} {
		if f.v != "" {
			*f.dst = f.v
		}
	}
	if overlay.VerifyTokens {
		c.VerifyTokens = true
	}
	if overlay.Store.RedisDB != 0 {
		c.Store.RedisDB = overlay.Store.RedisDB
	}
}

func (c *Config) loadDefaults() {
	if c.RedirectURL == "" {
		c.RedirectURL = "acme://login"
	}
	if c.Audience == "" {
		c.Audience = "authenticated"
	}
	if c.RefreshMargin == "" {
		c.RefreshMargin = "60s"
	}
	if c.RetryInterval == "" {
		c.RetryInterval = "15s"
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = "10s"
	}
	if c.Store.Key == "" {
		c.Store.Key = "microfinder:session"
	}
}

func (c *Config) loadEnv(env *Env) {
	envvar.String(&c.URL, env.URL)
	envvar.String(&c.AnonKey, env.AnonKey)
	envvar.String(&c.RedirectURL, env.RedirectURL)
	envvar.String(&c.Audience, env.Audience)
	envvar.Bool(&c.VerifyTokens, env.VerifyTokens)
	envvar.Duration(&c.RefreshMargin, env.RefreshMargin)
	envvar.Duration(&c.RetryInterval, env.RetryInterval)
	envvar.Duration(&c.RequestTimeout, env.RequestTimeout)
	envvar.String(&c.Store.RedisAddr, env.RedisAddr)
	envvar.String(&c.Store.RedisPassword, env.RedisPassword)
	envvar.Int(&c.Store.RedisDB, env.RedisDB)
	envvar.String(&c.Store.Key, env.StoreKey)
}

func (c *Config) validate() error {
	if c.URL == "" {
		return errors.New("url required")
	}
	if u, err := url.Parse(c.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid url: %q", c.URL)
	}
	if c.AnonKey == "" {
		return errors.New("anon_key required")
	}
	for name, v := range map[string]string{
		"refresh_margin":  c.RefreshMargin,
		"retry_interval":  c.RetryInterval,
		"request_timeout": c.RequestTimeout,
	} {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			return fmt.Errorf("invalid %s: %q", name, v)
		}
	}
	return nil
}
