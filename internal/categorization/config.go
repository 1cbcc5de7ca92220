package categorization

import (
	"fmt"
	"os"
	"strconv"
)

// Config bounds batch size and batch concurrency for categorization.
type Config struct {
	BatchSize   int `toml:"batch_size"`
	Concurrency int `toml:"concurrency"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	BatchSize   string
	Concurrency string
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
	if overlay.BatchSize != 0 {
		c.BatchSize = overlay.BatchSize
	}
	if overlay.Concurrency != 0 {
		c.Concurrency = overlay.Concurrency
	}
}

func (c *Config) loadDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = 10
	}
	if c.Concurrency == 0 {
		c.Concurrency = 4
	}
}

func (c *Config) loadEnv(env *Env) {
	setInt := func(target *int, key string) {
		if key == "" {
			return
		}
		if value, ok := os.LookupEnv(key); ok {
			if parsed, err := strconv.Atoi(value); err == nil {
				*target = parsed
			}
		}
	}

	setInt(&c.BatchSize, env.BatchSize)
	setInt(&c.Concurrency, env.Concurrency)
}

func (c *Config) validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive")
	}
	return nil
}
