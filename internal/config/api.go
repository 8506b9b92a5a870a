package config

import (
	"fmt"
	"strings"

	"github.com/JaimeStill/microfinder/pkg/envvar"
	"github.com/JaimeStill/microfinder/pkg/middleware"
)

const EnvAPIBasePath = "MICROFINDER_API_BASE_PATH"

var corsEnv = &middleware.CORSEnv{
	Enabled:          "MICROFINDER_CORS_ENABLED",
	Origins:          "MICROFINDER_CORS_ORIGINS",
	AllowedMethods:   "MICROFINDER_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "MICROFINDER_CORS_ALLOWED_HEADERS",
	AllowCredentials: "MICROFINDER_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "MICROFINDER_CORS_MAX_AGE",
}

// APIConfig holds API routing and CORS settings.
type APIConfig struct {
	BasePath string                `toml:"base_path"`
	CORS     middleware.CORSConfig `toml:"cors"`
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS config.
func (c *APIConfig) Finalize() error {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	envvar.String(&c.BasePath, EnvAPIBasePath)

	if !strings.HasPrefix(c.BasePath, "/") || strings.Count(c.BasePath, "/") != 1 {
		return fmt.Errorf("base_path must be a single segment such as /api: %q", c.BasePath)
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	c.CORS.Merge(&overlay.CORS)
}
