// Package ledger tracks AI provider token usage and cost for a single
// processing session. Records are append-only; totals are computed at
// read time.
package ledger

import (
	"sync"
	"time"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/providers"
)

// Scope identifies which half of the pipeline a provider call served.
type Scope string

const (
	// ScopeAnalysis covers game detection and classification calls.
	ScopeAnalysis Scope = "analysis"
	// ScopeExtraction covers section categorization calls.
	ScopeExtraction Scope = "extraction"
)

// CallRecord is one provider attempt, successful or not. Failed attempts
// carry zero usage and zero cost.
type CallRecord struct {
	Provider providers.Name       `json:"provider"`
	Model    string               `json:"model"`
	Scope    Scope                `json:"scope"`
	Usage    providers.TokenUsage `json:"usage"`
	CostUSD  float64              `json:"cost_usd"`
	OK       bool                 `json:"ok"`
	At       time.Time            `json:"at"`
}

// Ledger accumulates provider call records for one session. Safe for
// concurrent use.
type Ledger struct {
	mu      sync.Mutex
	pricing Pricing
	records []CallRecord
}

func New(pricing Pricing) *Ledger {
	return &Ledger{pricing: pricing}
}

// Recorder binds the ledger to a scope. Every call lands in exactly one
// scope, so each pipeline stage gets its own recorder.
func (l *Ledger) Recorder(scope Scope) providers.UsageRecorder {
	return &scopedRecorder{ledger: l, scope: scope}
}

type scopedRecorder struct {
	ledger *Ledger
	scope  Scope
}

func (r *scopedRecorder) RecordCall(provider providers.Name, model string, usage providers.TokenUsage, ok bool) {
	record := CallRecord{
		Provider: provider,
		Model:    model,
		Scope:    r.scope,
		Usage:    usage,
		OK:       ok,
		At:       time.Now().UTC(),
	}
	if ok {
		record.CostUSD = r.ledger.pricing.CostUSD(provider, model, usage)
	}

	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()
	r.ledger.records = append(r.ledger.records, record)
}

// Records returns a copy of all recorded calls in append order.
func (l *Ledger) Records() []CallRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]CallRecord, len(l.records))
	copy(out, l.records)
	return out
}

// ScopeTotals aggregates the calls recorded under one scope.
type ScopeTotals struct {
	Calls            int     `json:"calls"`
	Failed           int     `json:"failed"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

func (t *ScopeTotals) add(record CallRecord) {
	t.Calls++
	if !record.OK {
		t.Failed++
	}
	t.PromptTokens += record.Usage.Prompt
	t.CompletionTokens += record.Usage.Completion
	t.TotalTokens += record.Usage.Total()
	t.CostUSD += record.CostUSD
}

// Summary reports per-scope and combined totals.
type Summary struct {
	Analysis   ScopeTotals `json:"analysis"`
	Extraction ScopeTotals `json:"extraction"`
	Combined   ScopeTotals `json:"combined"`
}

// Summary aggregates the current records. Token and cost totals come from
// successful calls; failed attempts only increment the call counters.
func (l *Ledger) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	var s Summary
	for _, record := range l.records {
		switch record.Scope {
		case ScopeAnalysis:
			s.Analysis.add(record)
		case ScopeExtraction:
			s.Extraction.add(record)
		}
		s.Combined.add(record)
	}
	return s
}
