package ledger

import (
	"sort"
	"strings"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/providers"
)

// Rate is the billing rate for a model in USD per million tokens.
type Rate struct {
	Prompt     float64
	Completion float64
}

type modelRate struct {
	prefix string
	rate   Rate
}

// Pricing maps provider models to billing rates. Models are matched by
// longest prefix so dated model identifiers resolve to their family rate.
// Unmatched models bill at zero.
type Pricing struct {
	rates map[providers.Name][]modelRate
}

// NewPricing builds a pricing table from per-provider model rates.
func NewPricing(entries map[providers.Name]map[string]Rate) Pricing {
	rates := make(map[providers.Name][]modelRate, len(entries))
	for provider, models := range entries {
		ordered := make([]modelRate, 0, len(models))
		for prefix, rate := range models {
			ordered = append(ordered, modelRate{prefix: prefix, rate: rate})
		}
		sort.Slice(ordered, func(i, j int) bool {
			return len(ordered[i].prefix) > len(ordered[j].prefix)
		})
		rates[provider] = ordered
	}
	return Pricing{rates: rates}
}

// DefaultPricing covers the models the default configuration can select.
func DefaultPricing() Pricing {
	return NewPricing(map[providers.Name]map[string]Rate{
		providers.NameAnthropic: {
			"claude-sonnet-4-5": {Prompt: 3.00, Completion: 15.00},
			"claude-haiku-4-5":  {Prompt: 1.00, Completion: 5.00},
		},
		providers.NameOpenAI: {
			"gpt-4o-mini": {Prompt: 0.15, Completion: 0.60},
			"gpt-4o":      {Prompt: 2.50, Completion: 10.00},
		},
		providers.NameOpenRouter: {
			"x-ai/grok-4.1-fast:free": {Prompt: 0, Completion: 0},
		},
	})
}

// CostUSD computes the billed cost of one call. Offline and unknown
// models cost nothing.
func (p Pricing) CostUSD(provider providers.Name, model string, usage providers.TokenUsage) float64 {
	for _, mr := range p.rates[provider] {
		if strings.HasPrefix(model, mr.prefix) {
			return float64(usage.Prompt)*mr.rate.Prompt/1e6 +
				float64(usage.Completion)*mr.rate.Completion/1e6
		}
	}
	return 0
}
