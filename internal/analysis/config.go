package analysis

import (
	"errors"
	"fmt"
	"time"

	"github.com/JaimeStill/microfinder/pkg/envvar"
	"github.com/JaimeStill/microfinder/pkg/formatting"
)

// Config selects the vision model and bounds each call.
type Config struct {
	APIKey string `toml:"api_key"`
	// Endpoint overrides the Generative Language base URL.
	Endpoint     string `toml:"endpoint"`
	Model        string `toml:"model"`
	Timeout      string `toml:"timeout"`
	MaxImageSize string `toml:"max_image_size"`
}

// Env names the environment variables that override Config fields.
type Env struct {
	APIKey       string
	Endpoint     string
	Model        string
	Timeout      string
	MaxImageSize string
}

func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

func (c *Config) MaxImageBytes() int64 {
	n, _ := formatting.ParseBytes(c.MaxImageSize)
	return n
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.MaxImageSize != "" {
		c.MaxImageSize = overlay.MaxImageSize
	}
}

func (c *Config) loadDefaults() {
	if c.Model == "" {
		c.Model = "gemini-2.0-flash"
	}
	if c.Timeout == "" {
		c.Timeout = "60s"
	}
	if c.MaxImageSize == "" {
		c.MaxImageSize = "5MB"
	}
}

func (c *Config) loadEnv(env *Env) {
	envvar.String(&c.APIKey, env.APIKey)
	envvar.String(&c.Endpoint, env.Endpoint)
	envvar.String(&c.Model, env.Model)
	envvar.String(&c.Timeout, env.Timeout)
	envvar.String(&c.MaxImageSize, env.MaxImageSize)
}

func (c *Config) validate() error {
	if c.APIKey == "" {
		return errors.New("api_key required")
	}
	if d, err := time.ParseDuration(c.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid timeout: %q", c.Timeout)
	}
	if n, err := formatting.ParseBytes(c.MaxImageSize); err != nil || n <= 0 {
		return fmt.Errorf("invalid max_image_size: %q", c.MaxImageSize)
	}
	return nil
}
