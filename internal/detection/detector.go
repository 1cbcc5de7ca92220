// Package detection turns sampled document text into a game system
// identity with a calibrated confidence score.
package detection

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/providers"
)

// Classifier is the provider side of detection, satisfied by the
// fallback chain.
type Classifier interface {
	Classify(ctx context.Context, req providers.ClassificationRequest, rec providers.UsageRecorder) *providers.ClassificationResult
}

// Detector samples document text, classifies it through the provider
// chain, and post-processes the answer: canonical game spelling and a
// confidence blended with the local keyword heuristic.
type Detector struct {
	classifier  Classifier
	vocab       *providers.Vocabulary
	samplePages int
	sampleChars int
	minLength   int
	prefer      providers.Name
	logger      *slog.Logger
}

func New(classifier Classifier, vocab *providers.Vocabulary, cfg *Config, logger *slog.Logger) *Detector {
	return &Detector{
		classifier:  classifier,
		vocab:       vocab,
		samplePages: cfg.SamplePages,
		sampleChars: cfg.SampleChars,
		minLength:   cfg.MinLength,
		logger:      logger.With("system", "detection"),
	}
}

// Prefer returns a copy of the detector that stamps requests with the
// named backend, moving it to the front of the chain for those calls.
// An empty name returns the receiver unchanged.
func (d *Detector) Prefer(name providers.Name) *Detector {
	if name == "" {
		return d
	}
	clone := *d
	clone.prefer = name
	return &clone
}

// Detect classifies a document from its page texts. Samples under the
// minimum length short-circuit to Unknown without a provider call, so
// unusable input costs nothing.
func (d *Detector) Detect(ctx context.Context, pages []string, contentType providers.ContentType, rec providers.UsageRecorder) *providers.ClassificationResult {
	sample := d.sample(pages)

	if utf8.RuneCountInString(sample) < d.minLength {
		d.logger.Info("sample below minimum length, skipping providers",
			"length", utf8.RuneCountInString(sample),
			"min_length", d.minLength,
		)
		return &providers.ClassificationResult{
			GameType:  "Unknown",
			Edition:   "Unknown",
			BookType:  "Unknown",
			Reasoning: "text sample below minimum length",
		}
	}

	result := d.classifier.Classify(ctx, providers.ClassificationRequest{
		Text:        sample,
		ContentType: contentType,
		KnownGames:  d.vocab.GameNames(),
		Provider:    d.prefer,
	}, rec)

	result.GameType = CanonicalGame(result.GameType)
	result.Confidence = d.blend(result, sample)

	d.logger.Info("detection complete",
		"game_type", result.GameType,
		"edition", result.Edition,
		"book_type", result.BookType,
		"confidence", result.Confidence,
		"provider", result.Provider,
		"degraded", result.Degraded,
	)

	return result
}

// blend combines the provider's stated confidence with local keyword
// support for the same game. A degraded result is capped at what the
// keyword table alone would justify.
func (d *Detector) blend(result *providers.ClassificationResult, sample string) float64 {
	support := 0.0
	if game, conf := d.vocab.ScoreGame(sample); game != "" && CanonicalGame(game) == result.GameType {
		support = conf
	}

	confidence := 0.7*result.Confidence + 0.3*support
	if result.Degraded && confidence > support {
		confidence = support
	}

	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

func (d *Detector) sample(pages []string) string {
	limit := min(d.samplePages, len(pages))
	joined := strings.TrimSpace(strings.Join(pages[:limit], "\n"))

	runes := []rune(joined)
	if len(runes) > d.sampleChars {
		joined = strings.TrimSpace(string(runes[:d.sampleChars]))
	}
	return joined
}
