package providers_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/providers"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseName(t *testing.T) {
	tests := []struct {
		input   string
		want    providers.Name
		wantErr bool
	}{
		{input: "anthropic", want: providers.NameAnthropic},
		{input: "openai", want: providers.NameOpenAI},
		{input: "openrouter", want: providers.NameOpenRouter},
		{input: "offline", want: providers.NameOffline},
		{input: "gemini", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := providers.ParseName(tt.input)
			if tt.wantErr {
				if !errors.Is(err, providers.ErrUnknownProvider) {
					t.Fatalf("expected ErrUnknownProvider, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseContentType(t *testing.T) {
	got, err := providers.ParseContentType("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != providers.ContentSourceMaterial {
		t.Errorf("empty input: got %s, want %s", got, providers.ContentSourceMaterial)
	}

	if _, err := providers.ParseContentType("cookbook"); !errors.Is(err, providers.ErrInvalidContentType) {
		t.Errorf("expected ErrInvalidContentType, got %v", err)
	}
}

func TestVocabularyClassifyText(t *testing.T) {
	vocab, err := providers.LoadVocabulary()
	if err != nil {
		t.Fatalf("load vocabulary: %v", err)
	}

	tests := []struct {
		name           string
		text           string
		wantGame       string
		wantEdition    string
		wantBookType   string
		wantConfidence float64
	}{
		{
			name:           "classic monster manual title page",
			text:           "Advanced Dungeons & Dragons Monster Manual",
			wantGame:       "D&D",
			wantEdition:    "1st Edition",
			wantBookType:   "Monster Manual",
			wantConfidence: 0.7,
		},
		{
			name:           "no indicators",
			text:           "a quarterly report on municipal water infrastructure",
			wantGame:       "Unknown",
			wantEdition:    "Unknown",
			wantBookType:   "Unknown",
			wantConfidence: 0,
		},
		{
			name:           "pathfinder core",
			text:           "Pathfinder Roleplaying Game Core Rulebook from Paizo, set in the world of Golarion",
			wantGame:       "Pathfinder",
			wantBookType:   "Core Rulebook",
			wantEdition:    "1st Edition",
			wantConfidence: 0.85,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := vocab.ClassifyText(tt.text)

			if result.GameType != tt.wantGame {
				t.Errorf("game type: got %s, want %s", result.GameType, tt.wantGame)
			}
			if result.Edition != tt.wantEdition {
				t.Errorf("edition: got %s, want %s", result.Edition, tt.wantEdition)
			}
			if result.BookType != tt.wantBookType {
				t.Errorf("book type: got %s, want %s", result.BookType, tt.wantBookType)
			}
			if result.Confidence != tt.wantConfidence {
				t.Errorf("confidence: got %v, want %v", result.Confidence, tt.wantConfidence)
			}
			if result.Provider != providers.NameOffline {
				t.Errorf("provider: got %s, want offline", result.Provider)
			}
			if result.Usage.Total() != 0 {
				t.Errorf("offline usage should be zero, got %d", result.Usage.Total())
			}
		})
	}
}

func TestVocabularyDeterminism(t *testing.T) {
	vocab, err := providers.LoadVocabulary()
	if err != nil {
		t.Fatalf("load vocabulary: %v", err)
	}

	text := "Dungeons & Dragons Player's Handbook, 5th Edition"
	first := vocab.ClassifyText(text)
	for range 10 {
		next := vocab.ClassifyText(text)
		if *next != *first {
			t.Fatalf("classification not deterministic: %+v vs %+v", next, first)
		}
	}
}

func TestVocabularyLabelSections(t *testing.T) {
	vocab, err := providers.LoadVocabulary()
	if err != nil {
		t.Fatalf("load vocabulary: %v", err)
	}

	sections := []string{
		"Fireball. Casting time: 1 action. Components: V, S, M. Spell level 3.",
		"The history of the kingdom stretches back to the age of legends.",
		"completely unrelated text with no indicators at all",
	}

	labels := vocab.LabelSections(sections, []string{"rules", "lore", "spells", "unknown"})

	if len(labels) != len(sections) {
		t.Fatalf("label count %d, want %d", len(labels), len(sections))
	}
	if labels[0].Category != "spells" {
		t.Errorf("section 0: got %s, want spells", labels[0].Category)
	}
	if labels[1].Category != "lore" {
		t.Errorf("section 1: got %s, want lore", labels[1].Category)
	}
	if labels[2].Category != "unknown" {
		t.Errorf("section 2: got %s, want unknown", labels[2].Category)
	}
	if labels[2].Confidence != 0 {
		t.Errorf("unknown confidence: got %v, want 0", labels[2].Confidence)
	}
}

func TestOfflineClientNeverFails(t *testing.T) {
	vocab, err := providers.LoadVocabulary()
	if err != nil {
		t.Fatalf("load vocabulary: %v", err)
	}
	client := providers.NewOffline(vocab)

	result, err := client.Classify(context.Background(), providers.ClassificationRequest{
		Text:        "",
		ContentType: providers.ContentSourceMaterial,
	})
	if err != nil {
		t.Fatalf("offline classify returned error: %v", err)
	}
	if result.GameType != "Unknown" || result.Confidence != 0 {
		t.Errorf("empty text: got %s/%v, want Unknown/0", result.GameType, result.Confidence)
	}
}

type recorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

type recordedCall struct {
	provider providers.Name
	usage    providers.TokenUsage
	ok       bool
}

func (r *recorder) RecordCall(provider providers.Name, model string, usage providers.TokenUsage, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{provider: provider, usage: usage, ok: ok})
}

type stubClient struct {
	name    providers.Name
	result  *providers.ClassificationResult
	labels  []providers.LabelSet
	err     error
	callsMu sync.Mutex
	calls   int
}

func (s *stubClient) Name() providers.Name { return s.name }
func (s *stubClient) Model() string        { return "stub-model" }

func (s *stubClient) Classify(ctx context.Context, req providers.ClassificationRequest) (*providers.ClassificationResult, error) {
	s.callsMu.Lock()
	s.calls++
	s.callsMu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubClient) CategorizeBatch(ctx context.Context, sections []string, hint providers.ContextHint) ([]providers.LabelSet, providers.TokenUsage, error) {
	s.callsMu.Lock()
	s.calls++
	s.callsMu.Unlock()
	if s.err != nil {
		return nil, providers.TokenUsage{}, s.err
	}
	return s.labels, providers.TokenUsage{}, nil
}

func newTestChain(t *testing.T, remote []providers.Client) *providers.Chain {
	t.Helper()
	vocab, err := providers.LoadVocabulary()
	if err != nil {
		t.Fatalf("load vocabulary: %v", err)
	}
	return providers.NewChain(remote, providers.NewOffline(vocab), providers.ChainConfig{
		Attempts: 3,
		Backoff:  time.Millisecond,
	}, discard())
}

func TestChainFallsBackToOfflineAfterTimeouts(t *testing.T) {
	stub := &stubClient{
		name: providers.NameAnthropic,
		err: &providers.Error{
			Provider: providers.NameAnthropic,
			Kind:     providers.KindTimeout,
			Err:      errors.New("deadline exceeded"),
		},
	}
	chain := newTestChain(t, []providers.Client{stub})

	rec := &recorder{}
	result := chain.Classify(context.Background(), providers.ClassificationRequest{
		Text:        "Advanced Dungeons & Dragons Monster Manual",
		ContentType: providers.ContentSourceMaterial,
	}, rec)

	if result == nil {
		t.Fatal("chain returned nil result")
	}
	if result.Provider != providers.NameOffline {
		t.Errorf("provider: got %s, want offline", result.Provider)
	}
	if result.GameType != "D&D" {
		t.Errorf("game type: got %s, want D&D", result.GameType)
	}

	if stub.calls != 3 {
		t.Errorf("remote attempts: got %d, want 3", stub.calls)
	}

	failed := 0
	for _, call := range rec.calls {
		if !call.ok {
			failed++
			if call.usage.Total() != 0 {
				t.Errorf("failed call recorded nonzero usage: %+v", call.usage)
			}
		}
	}
	if failed != 3 {
		t.Errorf("failed records: got %d, want 3", failed)
	}

	last := rec.calls[len(rec.calls)-1]
	if last.provider != providers.NameOffline || !last.ok {
		t.Errorf("last record should be offline success, got %+v", last)
	}
}

func TestChainAuthFailureSkipsProviderImmediately(t *testing.T) {
	failing := &stubClient{
		name: providers.NameAnthropic,
		err: &providers.Error{
			Provider: providers.NameAnthropic,
			Kind:     providers.KindAuthFailed,
			Err:      errors.New("invalid api key"),
		},
	}
	healthy := &stubClient{
		name: providers.NameOpenAI,
		result: &providers.ClassificationResult{
			GameType:   "Pathfinder",
			Edition:    "2nd Edition",
			BookType:   "Core Rulebook",
			Confidence: 0.9,
			Provider:   providers.NameOpenAI,
			Model:      "stub-model",
		},
	}
	chain := newTestChain(t, []providers.Client{failing, healthy})

	rec := &recorder{}
	result := chain.Classify(context.Background(), providers.ClassificationRequest{
		Text: "some text",
	}, rec)

	if failing.calls != 1 {
		t.Errorf("auth-failed provider attempts: got %d, want 1", failing.calls)
	}
	if result.Provider != providers.NameOpenAI {
		t.Errorf("provider: got %s, want openai", result.Provider)
	}
}

func TestChainMalformedRetriesOnce(t *testing.T) {
	stub := &stubClient{
		name: providers.NameOpenAI,
		err: &providers.Error{
			Provider: providers.NameOpenAI,
			Kind:     providers.KindMalformed,
			Err:      errors.New("label count mismatch"),
		},
	}
	chain := newTestChain(t, []providers.Client{stub})

	rec := &recorder{}
	labels := chain.CategorizeBatch(context.Background(), []string{"a", "b"}, providers.ContextHint{}, rec)

	if stub.calls != 2 {
		t.Errorf("malformed attempts: got %d, want 2", stub.calls)
	}
	if len(labels) != 2 {
		t.Fatalf("labels: got %d, want 2", len(labels))
	}
}

func TestChainExpiredDeadlineServesOffline(t *testing.T) {
	stub := &stubClient{
		name: providers.NameAnthropic,
		result: &providers.ClassificationResult{
			GameType: "D&D",
			Provider: providers.NameAnthropic,
		},
	}
	chain := newTestChain(t, []providers.Client{stub})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recorder{}
	result := chain.Classify(ctx, providers.ClassificationRequest{Text: "thac0"}, rec)

	if stub.calls != 0 {
		t.Errorf("remote calls after expiry: got %d, want 0", stub.calls)
	}
	if result.Provider != providers.NameOffline {
		t.Errorf("provider: got %s, want offline", result.Provider)
	}
}

func TestChainHonorsRequestedProvider(t *testing.T) {
	first := &stubClient{
		name: providers.NameAnthropic,
		result: &providers.ClassificationResult{
			GameType: "D&D",
			Provider: providers.NameAnthropic,
		},
	}
	second := &stubClient{
		name: providers.NameOpenAI,
		result: &providers.ClassificationResult{
			GameType: "D&D",
			Provider: providers.NameOpenAI,
		},
	}
	chain := newTestChain(t, []providers.Client{first, second})

	result := chain.Classify(context.Background(), providers.ClassificationRequest{
		Text:     "thac0 saving throw",
		Provider: providers.NameOpenAI,
	}, providers.NopRecorder{})

	if result.Provider != providers.NameOpenAI {
		t.Errorf("provider: got %s, want openai", result.Provider)
	}
	if first.calls != 0 {
		t.Errorf("configured-first backend called %d times, want 0", first.calls)
	}

	t.Run("unknown preference keeps configured order", func(t *testing.T) {
		first.calls, second.calls = 0, 0
		result := chain.Classify(context.Background(), providers.ClassificationRequest{
			Text:     "thac0 saving throw",
			Provider: providers.Name("nonexistent"),
		}, providers.NopRecorder{})

		if result.Provider != providers.NameAnthropic {
			t.Errorf("provider: got %s, want anthropic", result.Provider)
		}
		if second.calls != 0 {
			t.Errorf("second backend called %d times, want 0", second.calls)
		}
	})
}

func newOpenAIServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected authorization header: %s", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func chatCompletion(content string) string {
	return `{"choices":[{"message":{"content":` + content + `}}],"usage":{"prompt_tokens":120,"completion_tokens":40}}`
}

func TestOpenAIClassify(t *testing.T) {
	server := newOpenAIServer(t, http.StatusOK, chatCompletion(
		`"{\"game_type\":\"Shadowrun\",\"edition\":\"6th Edition\",\"book_type\":\"Core Rulebook\",\"confidence\":0.92,\"reasoning\":\"explicit title\"}"`,
	))
	defer server.Close()

	client := providers.NewOpenAI(providers.ClientConfig{
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		BaseURL: server.URL,
		Timeout: "5s",
	}, discard())

	result, err := client.Classify(context.Background(), providers.ClassificationRequest{
		Text:        "Shadowrun Sixth World Edition",
		ContentType: providers.ContentSourceMaterial,
	})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}

	if result.GameType != "Shadowrun" {
		t.Errorf("game type: got %s", result.GameType)
	}
	if result.Confidence != 0.92 {
		t.Errorf("confidence: got %v", result.Confidence)
	}
	if result.Degraded {
		t.Error("valid response marked degraded")
	}
	if result.Usage.Prompt != 120 || result.Usage.Completion != 40 {
		t.Errorf("usage: got %+v", result.Usage)
	}
}

func TestOpenAIClassifyRepairsOutOfRangeConfidence(t *testing.T) {
	server := newOpenAIServer(t, http.StatusOK, chatCompletion(
		`"{\"game_type\":\"GURPS\",\"edition\":\"4th Edition\",\"book_type\":\"Core Rulebook\",\"confidence\":1.7}"`,
	))
	defer server.Close()

	client := providers.NewOpenAI(providers.ClientConfig{
		APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: server.URL, Timeout: "5s",
	}, discard())

	result, err := client.Classify(context.Background(), providers.ClassificationRequest{Text: "gurps"})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !result.Degraded {
		t.Error("out-of-range confidence should mark result degraded")
	}
	if result.Confidence != 1.0 {
		t.Errorf("confidence: got %v, want clamped 1.0", result.Confidence)
	}
}

func TestOpenAIClassifyFencedJSON(t *testing.T) {
	fenced := "```json\\n{\\\"game_type\\\":\\\"Traveller\\\",\\\"edition\\\":\\\"Mongoose\\\",\\\"book_type\\\":\\\"Core Rulebook\\\",\\\"confidence\\\":0.8}\\n```"
	server := newOpenAIServer(t, http.StatusOK, chatCompletion(`"`+fenced+`"`))
	defer server.Close()

	client := providers.NewOpenAI(providers.ClientConfig{
		APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: server.URL, Timeout: "5s",
	}, discard())

	result, err := client.Classify(context.Background(), providers.ClassificationRequest{Text: "traveller"})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if result.GameType != "Traveller" {
		t.Errorf("game type: got %s, want Traveller", result.GameType)
	}
}

func TestOpenAIErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   providers.Kind
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, want: providers.KindAuthFailed},
		{name: "forbidden", status: http.StatusForbidden, want: providers.KindAuthFailed},
		{name: "rate limited", status: http.StatusTooManyRequests, want: providers.KindRateLimited},
		{name: "server error", status: http.StatusInternalServerError, want: providers.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newOpenAIServer(t, tt.status, `{"error":{"message":"nope"}}`)
			defer server.Close()

			client := providers.NewOpenAI(providers.ClientConfig{
				APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: server.URL, Timeout: "5s",
			}, discard())

			_, err := client.Classify(context.Background(), providers.ClassificationRequest{Text: "x"})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := providers.KindOf(err); got != tt.want {
				t.Errorf("kind: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestOpenAICategorizeCountMismatchIsMalformed(t *testing.T) {
	server := newOpenAIServer(t, http.StatusOK, chatCompletion(
		`"{\"labels\":[{\"category\":\"rules\",\"confidence\":0.8}]}"`,
	))
	defer server.Close()

	client := providers.NewOpenAI(providers.ClientConfig{
		APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: server.URL, Timeout: "5s",
	}, discard())

	_, _, err := client.CategorizeBatch(context.Background(), []string{"a", "b", "c"}, providers.ContextHint{})
	if err == nil {
		t.Fatal("expected error for count mismatch")
	}
	if got := providers.KindOf(err); got != providers.KindMalformed {
		t.Errorf("kind: got %s, want malformed", got)
	}
}

func TestBuildSkipsKeylessProviders(t *testing.T) {
	cfg := &providers.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	chain, vocab, err := providers.Build(cfg, discard())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if vocab == nil {
		t.Fatal("vocabulary missing")
	}
	if names := chain.Providers(); len(names) != 0 {
		t.Errorf("keyless config should produce empty remote chain, got %v", names)
	}
}

func TestConfigRejectsUnknownFallback(t *testing.T) {
	cfg := &providers.Config{Fallback: []string{"anthropic", "bard"}}
	if err := cfg.Finalize(nil); !errors.Is(err, providers.ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
}
