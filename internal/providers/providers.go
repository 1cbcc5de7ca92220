// Package providers implements the AI classification backends and the
// fallback chain that arbitrates between them. Every backend satisfies
// Client; the offline keyword backend terminates the chain and never fails.
package providers

import (
	"context"
	"fmt"
)

// Name identifies a classification backend.
type Name string

const (
	NameAnthropic  Name = "anthropic"
	NameOpenAI     Name = "openai"
	NameOpenRouter Name = "openrouter"
	NameOffline    Name = "offline"
)

// ParseName validates a provider name from configuration or request input.
func ParseName(s string) (Name, error) {
	switch Name(s) {
	case NameAnthropic, NameOpenAI, NameOpenRouter, NameOffline:
		return Name(s), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownProvider, s)
}

// ContentType describes the kind of publication being classified.
type ContentType string

const (
	ContentSourceMaterial ContentType = "source_material"
	ContentAdventure      ContentType = "adventure"
	ContentNovel          ContentType = "novel"
	ContentSupplement     ContentType = "supplement"
)

// ParseContentType validates a content type, defaulting to source material
// for empty input.
func ParseContentType(s string) (ContentType, error) {
	if s == "" {
		return ContentSourceMaterial, nil
	}
	switch ContentType(s) {
	case ContentSourceMaterial, ContentAdventure, ContentNovel, ContentSupplement:
		return ContentType(s), nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidContentType, s)
}

// TokenUsage counts tokens consumed by a single provider call.
type TokenUsage struct {
	Prompt     int64 `json:"prompt_tokens"`
	Completion int64 `json:"completion_tokens"`
}

// Total returns the combined prompt and completion token count.
func (u TokenUsage) Total() int64 {
	return u.Prompt + u.Completion
}

// ClassificationRequest carries the text sample and content type hint for
// a classification call. KnownGames seeds the prompt with the spellings
// the archive already uses. Provider and Model, when set, name the
// requested backend: the chain tries that backend first but keeps its
// fallback order, and backends always serve their configured model.
// Values are treated as immutable once constructed.
type ClassificationRequest struct {
	Text        string      `json:"text"`
	ContentType ContentType `json:"content_type"`
	KnownGames  []string    `json:"known_games,omitempty"`
	Provider    Name        `json:"provider,omitempty"`
	Model       string      `json:"model,omitempty"`
}

// ClassificationResult is the normalized outcome of a classification call.
// Confidence is always within [0,1]; degraded results were repaired from a
// response that failed schema validation.
type ClassificationResult struct {
	GameType   string     `json:"game_type"`
	Edition    string     `json:"edition"`
	BookType   string     `json:"book_type"`
	Confidence float64    `json:"confidence"`
	Reasoning  string     `json:"reasoning,omitempty"`
	Usage      TokenUsage `json:"usage"`
	Degraded   bool       `json:"degraded,omitempty"`
	Provider   Name       `json:"provider"`
	Model      string     `json:"model"`
}

// LabelSet is the category assignment for a single content section.
type LabelSet struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// ContextHint supplies detected document metadata and the allowed category
// taxonomy to categorization calls.
type ContextHint struct {
	GameType   string
	Edition    string
	BookType   string
	Categories []string
}

// Client is a single classification backend. Implementations must honor
// the caller's context deadline and return *Error for backend failures.
type Client interface {
	// Name identifies the backend.
	Name() Name
	// Model returns the model identifier used for calls.
	Model() string
	// Classify determines the game system identity of a text sample.
	Classify(ctx context.Context, req ClassificationRequest) (*ClassificationResult, error)
	// CategorizeBatch assigns one label per section, preserving input order.
	// The returned slice length always equals len(sections) on success.
	CategorizeBatch(ctx context.Context, sections []string, hint ContextHint) ([]LabelSet, TokenUsage, error)
}

// UsageRecorder receives one record per provider attempt, successful or not.
// Failed attempts carry zero token usage.
type UsageRecorder interface {
	RecordCall(provider Name, model string, usage TokenUsage, ok bool)
}

// NopRecorder discards usage records.
type NopRecorder struct{}

func (NopRecorder) RecordCall(Name, string, TokenUsage, bool) {}
