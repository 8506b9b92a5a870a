// Package config loads the service configuration from config.toml, an
// optional config.<env>.toml overlay, and MICROFINDER_* environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/microfinder/internal/analysis"
	"github.com/JaimeStill/microfinder/internal/auth"
	"github.com/JaimeStill/microfinder/internal/observability"
	"github.com/JaimeStill/microfinder/pkg/database"
	"github.com/JaimeStill/microfinder/pkg/envvar"
	"github.com/JaimeStill/microfinder/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvMicrofinderEnv     = "MICROFINDER_ENV"
	EnvMicrofinderVersion = "MICROFINDER_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "MICROFINDER_DB_HOST",
	Port:            "MICROFINDER_DB_PORT",
	Name:            "MICROFINDER_DB_NAME",
	User:            "MICROFINDER_DB_USER",
	Password:        "MICROFINDER_DB_PASSWORD",
	SSLMode:         "MICROFINDER_DB_SSL_MODE",
	MaxOpenConns:    "MICROFINDER_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "MICROFINDER_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "MICROFINDER_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "MICROFINDER_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "MICROFINDER_STORAGE_CONTAINER_NAME",
	ConnectionString: "MICROFINDER_STORAGE_CONNECTION_STRING",
	AccountURL:       "MICROFINDER_STORAGE_ACCOUNT_URL",
	PublicBaseURL:    "MICROFINDER_STORAGE_PUBLIC_BASE_URL",
}

var analysisEnv = &analysis.Env{
	APIKey:       "MICROFINDER_ANALYSIS_API_KEY",
	Endpoint:     "MICROFINDER_ANALYSIS_ENDPOINT",
	Model:        "MICROFINDER_ANALYSIS_MODEL",
	Timeout:      "MICROFINDER_ANALYSIS_TIMEOUT",
	MaxImageSize: "MICROFINDER_ANALYSIS_MAX_IMAGE_SIZE",
}

var authEnv = &auth.Env{
	URL:            "MICROFINDER_AUTH_URL",
	AnonKey:        "MICROFINDER_AUTH_ANON_KEY",
	RedirectURL:    "MICROFINDER_AUTH_REDIRECT_URL",
	Audience:       "MICROFINDER_AUTH_AUDIENCE",
	VerifyTokens:   "MICROFINDER_AUTH_VERIFY_TOKENS",
	RefreshMargin:  "MICROFINDER_AUTH_REFRESH_MARGIN",
	RetryInterval:  "MICROFINDER_AUTH_RETRY_INTERVAL",
	RequestTimeout: "MICROFINDER_AUTH_REQUEST_TIMEOUT",
	RedisAddr:      "MICROFINDER_AUTH_REDIS_ADDR",
	RedisPassword:  "MICROFINDER_AUTH_REDIS_PASSWORD",
	RedisDB:        "MICROFINDER_AUTH_REDIS_DB",
	StoreKey:       "MICROFINDER_AUTH_STORE_KEY",
}

var observabilityEnv = &observability.Env{
	SentryDSN:        "MICROFINDER_SENTRY_DSN",
	Environment:      "MICROFINDER_SENTRY_ENVIRONMENT",
	Release:          "MICROFINDER_SENTRY_RELEASE",
	TracesSampleRate: "MICROFINDER_SENTRY_TRACES_SAMPLE_RATE",
	FlushTimeout:     "MICROFINDER_SENTRY_FLUSH_TIMEOUT",
}

// Config is the root configuration for the microfinder service.
type Config struct {
	Server        ServerConfig         `toml:"server"`
	Database      database.Config      `toml:"database"`
	Storage       storage.Config       `toml:"storage"`
	API           APIConfig            `toml:"api"`
	Analysis      analysis.Config      `toml:"analysis"`
	Auth          auth.Config          `toml:"auth"`
	Observability observability.Config `toml:"observability"`
	Version       string               `toml:"version"`
}

// Env returns the MICROFINDER_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvMicrofinderEnv); env != "" {
		return env
	}
	return "local"
}

func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return c.Server.ShutdownTimeoutDuration()
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. Without a config.toml, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom is Load rooted at dir.
func LoadFrom(dir string) (*Config, error) {
	cfg, err := read(dir)
	if err != nil {
		return nil, err
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Analysis.Merge(&overlay.Analysis)
	c.Auth.Merge(&overlay.Auth)
	c.Observability.Merge(&overlay.Observability)
}

func (c *Config) finalize() error {
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	envvar.String(&c.Version, EnvMicrofinderVersion)

	if c.Observability.Release == "" {
		c.Observability.Release = "microfinder@" + c.Version
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Env()
	}

	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Analysis.Finalize(analysisEnv); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Observability.Finalize(observabilityEnv); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	return nil
}

// read merges the base file and the environment overlay without
// finalizing.
func read(dir string) (*Config, error) {
	cfg := &Config{}

	base := filepath.Join(dir, BaseConfigFile)
	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(dir); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	return cfg, nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath(dir string) string {
	if env := os.Getenv(EnvMicrofinderEnv); env != "" {
		path := filepath.Join(dir, fmt.Sprintf(OverlayConfigPattern, env))
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadDatabase resolves only the database section, for tools that do not
// need the rest of the service configured.
func LoadDatabase(dir string) (*database.Config, error) {
	cfg, err := read(dir)
	if err != nil {
		return nil, err
	}

	if err := cfg.Database.Finalize(databaseEnv); err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	return &cfg.Database, nil
}
