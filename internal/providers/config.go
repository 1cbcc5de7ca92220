package providers

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds provider credentials, models, and fallback chain settings.
type Config struct {
	Fallback   []string     `toml:"fallback"`
	Attempts   int          `toml:"attempts"`
	Backoff    string       `toml:"backoff"`
	Anthropic  ClientConfig `toml:"anthropic"`
	OpenAI     ClientConfig `toml:"openai"`
	OpenRouter ClientConfig `toml:"openrouter"`
}

// ClientConfig holds connection settings for a single remote backend.
type ClientConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
	Referer string `toml:"referer"`
	Title   string `toml:"title"`
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *ClientConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Fallback         string
	Attempts         string
	Backoff          string
	AnthropicAPIKey  string
	AnthropicModel   string
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenRouterAPIKey string
	OpenRouterModel  string
}

// BackoffDuration returns Backoff as a time.Duration.
func (c *Config) BackoffDuration() time.Duration {
	d, _ := time.ParseDuration(c.Backoff)
	return d
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
	if overlay.Fallback != nil {
		c.Fallback = overlay.Fallback
	}
	if overlay.Attempts != 0 {
		c.Attempts = overlay.Attempts
	}
	if overlay.Backoff != "" {
		c.Backoff = overlay.Backoff
	}
	c.Anthropic.merge(&overlay.Anthropic)
	c.OpenAI.merge(&overlay.OpenAI)
	c.OpenRouter.merge(&overlay.OpenRouter)
}

func (c *ClientConfig) merge(overlay *ClientConfig) {
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.Referer != "" {
		c.Referer = overlay.Referer
	}
	if overlay.Title != "" {
		c.Title = overlay.Title
	}
}

func (c *Config) loadDefaults() {
	if c.Fallback == nil {
		c.Fallback = []string{string(NameAnthropic), string(NameOpenAI)}
	}
	if c.Attempts == 0 {
		c.Attempts = 3
	}
	if c.Backoff == "" {
		c.Backoff = "500ms"
	}

	if c.Anthropic.Model == "" {
		c.Anthropic.Model = "claude-sonnet-4-5-20250929"
	}
	if c.Anthropic.Timeout == "" {
		c.Anthropic.Timeout = "30s"
	}

	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.OpenAI.Timeout == "" {
		c.OpenAI.Timeout = "30s"
	}

	if c.OpenRouter.Model == "" {
		c.OpenRouter.Model = "x-ai/grok-4.1-fast:free"
	}
	if c.OpenRouter.BaseURL == "" {
		c.OpenRouter.BaseURL = "https://openrouter.ai/api/v1"
	}
	if c.OpenRouter.Timeout == "" {
		c.OpenRouter.Timeout = "30s"
	}
	if c.OpenRouter.Title == "" {
		c.OpenRouter.Title = "RPGER Content Extractor"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Fallback != "" {
		if v := os.Getenv(env.Fallback); v != "" {
			names := strings.Split(v, ",")
			c.Fallback = make([]string, 0, len(names))
			for _, name := range names {
				if trimmed := strings.TrimSpace(name); trimmed != "" {
					c.Fallback = append(c.Fallback, trimmed)
				}
			}
		}
	}
	if env.Attempts != "" {
		if v := os.Getenv(env.Attempts); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.Attempts = n
			}
		}
	}
	if env.Backoff != "" {
		if v := os.Getenv(env.Backoff); v != "" {
			c.Backoff = v
		}
	}
	if env.AnthropicAPIKey != "" {
		if v := os.Getenv(env.AnthropicAPIKey); v != "" {
			c.Anthropic.APIKey = v
		}
	}
	if env.AnthropicModel != "" {
		if v := os.Getenv(env.AnthropicModel); v != "" {
			c.Anthropic.Model = v
		}
	}
	if env.OpenAIAPIKey != "" {
		if v := os.Getenv(env.OpenAIAPIKey); v != "" {
			c.OpenAI.APIKey = v
		}
	}
	if env.OpenAIModel != "" {
		if v := os.Getenv(env.OpenAIModel); v != "" {
			c.OpenAI.Model = v
		}
	}
	if env.OpenRouterAPIKey != "" {
		if v := os.Getenv(env.OpenRouterAPIKey); v != "" {
			c.OpenRouter.APIKey = v
		}
	}
	if env.OpenRouterModel != "" {
		if v := os.Getenv(env.OpenRouterModel); v != "" {
			c.OpenRouter.Model = v
		}
	}
}

func (c *Config) validate() error {
	for _, name := range c.Fallback {
		if _, err := ParseName(name); err != nil {
			return err
		}
	}
	if c.Attempts < 1 {
		return fmt.Errorf("attempts must be positive")
	}
	if _, err := time.ParseDuration(c.Backoff); err != nil {
		return fmt.Errorf("invalid backoff: %w", err)
	}
	for name, cc := range map[string]*ClientConfig{
		"anthropic":  &c.Anthropic,
		"openai":     &c.OpenAI,
		"openrouter": &c.OpenRouter,
	} {
		if _, err := time.ParseDuration(cc.Timeout); err != nil {
			return fmt.Errorf("invalid %s timeout: %w", name, err)
		}
	}
	return nil
}
