package sessions

import (
	"fmt"
	"os"
	"strconv"
)

// Config bounds concurrent sessions and progress buffering.
type Config struct {
	MaxActive      int `toml:"max_active"`
	ProgressBuffer int `toml:"progress_buffer"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	MaxActive      string
	ProgressBuffer string
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
	if overlay.MaxActive != 0 {
		c.MaxActive = overlay.MaxActive
	}
	if overlay.ProgressBuffer != 0 {
		c.ProgressBuffer = overlay.ProgressBuffer
	}
}

func (c *Config) loadDefaults() {
	if c.MaxActive == 0 {
		c.MaxActive = 8
	}
	if c.ProgressBuffer == 0 {
		c.ProgressBuffer = 16
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

	setInt(&c.MaxActive, env.MaxActive)
	setInt(&c.ProgressBuffer, env.ProgressBuffer)
}

func (c *Config) validate() error {
	if c.MaxActive < 1 {
		return fmt.Errorf("max active sessions must be positive")
	}
	if c.ProgressBuffer < 1 {
		return fmt.Errorf("progress buffer must be positive")
	}
	return nil
}
