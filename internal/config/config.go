package config

import (
	"fmt"
	"os"
	"time"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/categorization"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/detection"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/providers"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/records"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/sessions"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/pkg/database"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/pkg/storage"
	"github.com/pelletier/go-toml/v2"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvRpgerEnv             = "RPGER_ENV"
	EnvRpgerShutdownTimeout = "RPGER_SHUTDOWN_TIMEOUT"
	EnvRpgerVersion         = "RPGER_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "RPGER_DB_HOST",
	Port:            "RPGER_DB_PORT",
	Name:            "RPGER_DB_NAME",
	User:            "RPGER_DB_USER",
	Password:        "RPGER_DB_PASSWORD",
	SSLMode:         "RPGER_DB_SSL_MODE",
	MaxOpenConns:    "RPGER_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "RPGER_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "RPGER_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "RPGER_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Backend:          "RPGER_STORAGE_BACKEND",
	ContainerName:    "RPGER_STORAGE_CONTAINER_NAME",
	ConnectionString: "RPGER_STORAGE_CONNECTION_STRING",
	LocalPath:        "RPGER_STORAGE_LOCAL_PATH",
}

var providersEnv = &providers.Env{
	Fallback:         "RPGER_PROVIDERS_FALLBACK",
	Attempts:         "RPGER_PROVIDERS_ATTEMPTS",
	Backoff:          "RPGER_PROVIDERS_BACKOFF",
	AnthropicAPIKey:  "RPGER_ANTHROPIC_API_KEY",
	AnthropicModel:   "RPGER_ANTHROPIC_MODEL",
	OpenAIAPIKey:     "RPGER_OPENAI_API_KEY",
	OpenAIModel:      "RPGER_OPENAI_MODEL",
	OpenRouterAPIKey: "RPGER_OPENROUTER_API_KEY",
	OpenRouterModel:  "RPGER_OPENROUTER_MODEL",
}

var detectionEnv = &detection.Env{
	SamplePages: "RPGER_DETECTION_SAMPLE_PAGES",
	SampleChars: "RPGER_DETECTION_SAMPLE_CHARS",
	MinLength:   "RPGER_DETECTION_MIN_LENGTH",
}

var categorizationEnv = &categorization.Env{
	BatchSize:   "RPGER_CATEGORIZATION_BATCH_SIZE",
	Concurrency: "RPGER_CATEGORIZATION_CONCURRENCY",
}

var sessionsEnv = &sessions.Env{
	MaxActive:      "RPGER_SESSIONS_MAX_ACTIVE",
	ProgressBuffer: "RPGER_SESSIONS_PROGRESS_BUFFER",
}

// Config is the root configuration for the extraction service.
type Config struct {
	Server          ServerConfig          `toml:"server"`
	Database        database.Config       `toml:"database"`
	Storage         storage.Config        `toml:"storage"`
	API             APIConfig             `toml:"api"`
	Providers       providers.Config      `toml:"providers"`
	Detection       detection.Config      `toml:"detection"`
	Categorization  categorization.Config `toml:"categorization"`
	Records         records.Config        `toml:"records"`
	Sessions        sessions.Config       `toml:"sessions"`
	ShutdownTimeout string                `toml:"shutdown_timeout"`
	Version         string                `toml:"version"`
}

// Env returns the RPGER_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvRpgerEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Providers.Merge(&overlay.Providers)
	c.Detection.Merge(&overlay.Detection)
	c.Categorization.Merge(&overlay.Categorization)
	c.Records.Merge(overlay.Records)
	c.Sessions.Merge(&overlay.Sessions)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
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
	if err := c.Providers.Finalize(providersEnv); err != nil {
		return fmt.Errorf("providers: %w", err)
	}
	if err := c.Detection.Finalize(detectionEnv); err != nil {
		return fmt.Errorf("detection: %w", err)
	}
	if err := c.Categorization.Finalize(categorizationEnv); err != nil {
		return fmt.Errorf("categorization: %w", err)
	}
	if err := c.Records.Finalize(records.DefaultEnv()); err != nil {
		return fmt.Errorf("records: %w", err)
	}
	if err := c.Sessions.Finalize(sessionsEnv); err != nil {
		return fmt.Errorf("sessions: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvRpgerShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvRpgerVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
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

func overlayPath() string {
	if env := os.Getenv(EnvRpgerEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
