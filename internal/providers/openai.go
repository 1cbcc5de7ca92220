package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// chatClient is a minimal chat/completions client shared by the OpenAI and
// OpenRouter backends.
type chatClient struct {
	name       Name
	endpoint   string
	apiKey     string
	model      string
	headers    map[string]string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOpenAI creates the OpenAI chat/completions backend.
func NewOpenAI(cfg ClientConfig, logger *slog.Logger) Client {
	return &chatClient{
		name:       NameOpenAI,
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.TimeoutDuration()},
		logger:     logger.With("provider", NameOpenAI),
	}
}

func (c *chatClient) Name() Name {
	return c.name
}

func (c *chatClient) Model() string {
	return c.model
}

func (c *chatClient) Classify(ctx context.Context, req ClassificationRequest) (*ClassificationResult, error) {
	system, user := buildClassifyPrompt(req)

	content, usage, err := c.complete(ctx, system, user)
	if err != nil {
		return nil, err
	}

	return decodeClassification(c.name, c.model, content, usage)
}

func (c *chatClient) CategorizeBatch(ctx context.Context, sections []string, hint ContextHint) ([]LabelSet, TokenUsage, error) {
	system, user := buildCategorizePrompt(sections, hint)

	content, usage, err := c.complete(ctx, system, user)
	if err != nil {
		return nil, TokenUsage{}, err
	}

	labels, err := decodeLabels(c.name, content, len(sections))
	if err != nil {
		return nil, TokenUsage{}, err
	}

	return labels, usage, nil
}

func (c *chatClient) complete(ctx context.Context, system, user string) (string, TokenUsage, error) {
	start := time.Now()

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", TokenUsage{}, newError(c.name, KindUnknown, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", TokenUsage{}, newError(c.name, KindUnknown, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", TokenUsage{}, newError(c.name, KindTimeout, err)
		}
		return "", TokenUsage{}, newError(c.name, KindUnknown, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", TokenUsage{}, newError(c.name, KindUnknown, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", TokenUsage{}, newError(c.name, kindFromStatus(resp.StatusCode),
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(respBody), 256)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", TokenUsage{}, newError(c.name, KindMalformed, fmt.Errorf("parse response: %w", err))
	}

	if parsed.Error != nil {
		return "", TokenUsage{}, newError(c.name, KindUnknown, fmt.Errorf("api error: %s", parsed.Error.Message))
	}

	if len(parsed.Choices) == 0 {
		return "", TokenUsage{}, newError(c.name, KindMalformed, fmt.Errorf("no choices in response"))
	}

	usage := TokenUsage{}
	if parsed.Usage != nil {
		usage.Prompt = parsed.Usage.PromptTokens
		usage.Completion = parsed.Usage.CompletionTokens
	}

	c.logger.Info("provider call complete",
		"model", c.model,
		"prompt_tokens", usage.Prompt,
		"completion_tokens", usage.Completion,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return parsed.Choices[0].Message.Content, usage, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
