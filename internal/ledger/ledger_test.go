package ledger_test

import (
	"math"
	"testing"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/ledger"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/providers"
)

func closeEnough(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLedgerScopesAndTotals(t *testing.T) {
	l := ledger.New(ledger.DefaultPricing())

	analysis := l.Recorder(ledger.ScopeAnalysis)
	extraction := l.Recorder(ledger.ScopeExtraction)

	analysis.RecordCall(providers.NameAnthropic, "claude-sonnet-4-5-20250929", providers.TokenUsage{}, false)
	analysis.RecordCall(providers.NameAnthropic, "claude-sonnet-4-5-20250929", providers.TokenUsage{Prompt: 1000, Completion: 500}, true)
	extraction.RecordCall(providers.NameOpenAI, "gpt-4o-mini", providers.TokenUsage{Prompt: 2000, Completion: 1000}, true)
	extraction.RecordCall(providers.NameOffline, "keyword-table-v1", providers.TokenUsage{}, true)

	s := l.Summary()

	if s.Analysis.Calls != 2 || s.Analysis.Failed != 1 {
		t.Errorf("analysis counts: got %d/%d, want 2/1", s.Analysis.Calls, s.Analysis.Failed)
	}
	if s.Analysis.PromptTokens != 1000 || s.Analysis.CompletionTokens != 500 {
		t.Errorf("analysis tokens: got %d/%d", s.Analysis.PromptTokens, s.Analysis.CompletionTokens)
	}
	// 1000 prompt at $3/M plus 500 completion at $15/M.
	if !closeEnough(s.Analysis.CostUSD, 0.0105) {
		t.Errorf("analysis cost: got %v, want 0.0105", s.Analysis.CostUSD)
	}

	if s.Extraction.Calls != 2 || s.Extraction.Failed != 0 {
		t.Errorf("extraction counts: got %d/%d, want 2/0", s.Extraction.Calls, s.Extraction.Failed)
	}
	if !closeEnough(s.Extraction.CostUSD, 0.0009) {
		t.Errorf("extraction cost: got %v, want 0.0009", s.Extraction.CostUSD)
	}

	if s.Combined.Calls != 4 || s.Combined.Failed != 1 {
		t.Errorf("combined counts: got %d/%d, want 4/1", s.Combined.Calls, s.Combined.Failed)
	}
	if s.Combined.TotalTokens != 4500 {
		t.Errorf("combined total tokens: got %d, want 4500", s.Combined.TotalTokens)
	}
	if !closeEnough(s.Combined.CostUSD, 0.0114) {
		t.Errorf("combined cost: got %v, want 0.0114", s.Combined.CostUSD)
	}
}

func TestFailedCallsBillNothing(t *testing.T) {
	l := ledger.New(ledger.DefaultPricing())

	// A failed attempt must never carry cost even if usage slips through.
	l.Recorder(ledger.ScopeAnalysis).RecordCall(
		providers.NameAnthropic, "claude-sonnet-4-5-20250929",
		providers.TokenUsage{Prompt: 9999, Completion: 9999}, false,
	)

	records := l.Records()
	if len(records) != 1 {
		t.Fatalf("records: got %d, want 1", len(records))
	}
	if records[0].CostUSD != 0 {
		t.Errorf("failed call cost: got %v, want 0", records[0].CostUSD)
	}
}

func TestRecordsReturnsCopy(t *testing.T) {
	l := ledger.New(ledger.DefaultPricing())
	l.Recorder(ledger.ScopeAnalysis).RecordCall(providers.NameOffline, "keyword-table-v1", providers.TokenUsage{}, true)

	records := l.Records()
	records[0].Provider = providers.NameOpenAI

	if got := l.Records()[0].Provider; got != providers.NameOffline {
		t.Errorf("ledger mutated through returned slice: %s", got)
	}
}

func TestPricingPrefixMatch(t *testing.T) {
	pricing := ledger.DefaultPricing()
	usage := providers.TokenUsage{Prompt: 1_000_000, Completion: 1_000_000}

	tests := []struct {
		name     string
		provider providers.Name
		model    string
		want     float64
	}{
		{name: "dated sonnet resolves to family", provider: providers.NameAnthropic, model: "claude-sonnet-4-5-20250929", want: 18.00},
		{name: "mini matched before 4o", provider: providers.NameOpenAI, model: "gpt-4o-mini-2024-07-18", want: 0.75},
		{name: "full 4o", provider: providers.NameOpenAI, model: "gpt-4o-2024-08-06", want: 12.50},
		{name: "free route", provider: providers.NameOpenRouter, model: "x-ai/grok-4.1-fast:free", want: 0},
		{name: "unknown model", provider: providers.NameOpenAI, model: "o3-preview", want: 0},
		{name: "offline", provider: providers.NameOffline, model: "keyword-table-v1", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pricing.CostUSD(tt.provider, tt.model, usage); !closeEnough(got, tt.want) {
				t.Errorf("cost: got %v, want %v", got, tt.want)
			}
		})
	}
}
