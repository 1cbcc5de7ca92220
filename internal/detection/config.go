package detection

import (
	"fmt"
	"os"
	"strconv"
)

// Config bounds the text sample the detector sends to providers.
type Config struct {
	SamplePages int `toml:"sample_pages"`
	SampleChars int `toml:"sample_chars"`
	MinLength   int `toml:"min_length"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	SamplePages string
	SampleChars string
	MinLength   string
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
	if overlay.SamplePages != 0 {
		c.SamplePages = overlay.SamplePages
	}
	if overlay.SampleChars != 0 {
		c.SampleChars = overlay.SampleChars
	}
	if overlay.MinLength != 0 {
		c.MinLength = overlay.MinLength
	}
}

func (c *Config) loadDefaults() {
	if c.SamplePages == 0 {
		c.SamplePages = 25
	}
	if c.SampleChars == 0 {
		c.SampleChars = 4000
	}
	if c.MinLength == 0 {
		c.MinLength = 50
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

	setInt(&c.SamplePages, env.SamplePages)
	setInt(&c.SampleChars, env.SampleChars)
	setInt(&c.MinLength, env.MinLength)
}

func (c *Config) validate() error {
	if c.SamplePages < 1 {
		return fmt.Errorf("sample pages must be positive")
	}
	if c.SampleChars < 1 {
		return fmt.Errorf("sample chars must be positive")
	}
	if c.MinLength < 1 {
		return fmt.Errorf("min length must be positive")
	}
	if c.MinLength > c.SampleChars {
		return fmt.Errorf("min length %d exceeds sample chars %d", c.MinLength, c.SampleChars)
	}
	return nil
}
