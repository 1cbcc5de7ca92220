// Package categorization assigns one taxonomy label to every content
// section of a document, batching sections to bound prompt size.
package categorization

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/providers"
)

// BatchCategorizer is the provider side of categorization, satisfied by
// the fallback chain. It always returns one label per section.
type BatchCategorizer interface {
	CategorizeBatch(ctx context.Context, sections []string, hint providers.ContextHint, rec providers.UsageRecorder) []providers.LabelSet
}

// Categorizer splits sections into fixed-size batches and labels each
// batch through the provider chain. Batches are independent, so they are
// dispatched concurrently; results keep submission order.
type Categorizer struct {
	chain       BatchCategorizer
	batchSize   int
	concurrency int
	logger      *slog.Logger
}

func New(chain BatchCategorizer, cfg *Config, logger *slog.Logger) *Categorizer {
	return &Categorizer{
		chain:       chain,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		logger:      logger.With("system", "categorization"),
	}
}

// Categorize labels every section. The returned slice always has exactly
// one entry per input section, in input order. Labels outside the
// taxonomy collapse to "unknown".
func (c *Categorizer) Categorize(ctx context.Context, sections []string, hint providers.ContextHint, rec providers.UsageRecorder) []providers.LabelSet {
	if len(sections) == 0 {
		return nil
	}

	if len(hint.Categories) == 0 {
		hint.Categories = Taxonomy()
	}

	labels := make([]providers.LabelSet, len(sections))
	batches := (len(sections) + c.batchSize - 1) / c.batchSize

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(min(c.concurrency, batches), 1))

	for start := 0; start < len(sections); start += c.batchSize {
		end := min(start+c.batchSize, len(sections))

		g.Go(func() error {
			batch := c.chain.CategorizeBatch(gctx, sections[start:end], hint, rec)
			for i, label := range batch {
				labels[start+i] = c.sanitize(label)
			}
			return nil
		})
	}

	// The chain never fails, it falls back to the rule-based labeler.
	g.Wait()

	c.logger.Info("categorization complete",
		"sections", len(sections),
		"batches", batches,
	)

	return labels
}

func (c *Categorizer) sanitize(label providers.LabelSet) providers.LabelSet {
	normalized, ok := Normalize(label.Category)
	if !ok {
		c.logger.Warn("label outside taxonomy, collapsed",
			"category", label.Category,
		)
		return providers.LabelSet{Category: CategoryUnknown, Confidence: 0}
	}

	label.Category = normalized
	if label.Confidence < 0 {
		label.Confidence = 0
	}
	if label.Confidence > 1 {
		label.Confidence = 1
	}
	return label
}
