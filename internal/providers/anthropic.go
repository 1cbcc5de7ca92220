package providers

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 4096

type anthropicClient struct {
	client anthropic.Client
	model  string
	logger *slog.Logger
}

// NewAnthropic creates the Anthropic messages backend.
func NewAnthropic(cfg ClientConfig, logger *slog.Logger) Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if d := cfg.TimeoutDuration(); d > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: d}))
	}

	return &anthropicClient{
		client: anthropic.NewClient(opts...),
		model:  cfg.Model,
		logger: logger.With("provider", NameAnthropic),
	}
}

func (c *anthropicClient) Name() Name {
	return NameAnthropic
}

func (c *anthropicClient) Model() string {
	return c.model
}

func (c *anthropicClient) Classify(ctx context.Context, req ClassificationRequest) (*ClassificationResult, error) {
	system, user := buildClassifyPrompt(req)

	content, usage, err := c.complete(ctx, system, user)
	if err != nil {
		return nil, err
	}

	return decodeClassification(NameAnthropic, c.model, content, usage)
}

func (c *anthropicClient) CategorizeBatch(ctx context.Context, sections []string, hint ContextHint) ([]LabelSet, TokenUsage, error) {
	system, user := buildCategorizePrompt(sections, hint)

	content, usage, err := c.complete(ctx, system, user)
	if err != nil {
		return nil, TokenUsage{}, err
	}

	labels, err := decodeLabels(NameAnthropic, content, len(sections))
	if err != nil {
		return nil, TokenUsage{}, err
	}

	return labels, usage, nil
}

func (c *anthropicClient) complete(ctx context.Context, system, user string) (string, TokenUsage, error) {
	start := time.Now()

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: anthropicMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", TokenUsage{}, c.mapError(err)
	}

	usage := TokenUsage{
		Prompt:     message.Usage.InputTokens,
		Completion: message.Usage.OutputTokens,
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			c.logger.Info("provider call complete",
				"model", c.model,
				"prompt_tokens", usage.Prompt,
				"completion_tokens", usage.Completion,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return block.Text, usage, nil
		}
	}

	return "", usage, newError(NameAnthropic, KindMalformed, ErrNoTextContent)
}

func (c *anthropicClient) mapError(err error) *Error {
	if isTimeout(err) {
		return newError(NameAnthropic, KindTimeout, err)
	}

	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return newError(NameAnthropic, kindFromStatus(apierr.StatusCode), err)
	}

	return newError(NameAnthropic, KindUnknown, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
