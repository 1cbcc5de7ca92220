package providers

import (
	"log/slog"
	"net/http"
	"strings"
)

// NewOpenRouter creates the OpenRouter backend. OpenRouter speaks the
// chat/completions protocol with two attribution headers on every request.
func NewOpenRouter(cfg ClientConfig, logger *slog.Logger) Client {
	headers := map[string]string{}
	if cfg.Referer != "" {
		headers["HTTP-Referer"] = cfg.Referer
	}
	if cfg.Title != "" {
		headers["X-Title"] = cfg.Title
	}

	return &chatClient{
		name:       NameOpenRouter,
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		headers:    headers,
		httpClient: &http.Client{Timeout: cfg.TimeoutDuration()},
		logger:     logger.With("provider", NameOpenRouter),
	}
}
