package workflow

import (
	"context"
	"io"
	"log/slog"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/documents"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/extraction"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/providers"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/records"
)

// TextExtractor produces page text from a PDF stream.
type TextExtractor interface {
	Extract(ctx context.Context, rs io.ReadSeeker) (*extraction.Result, error)
}

// Detector classifies a document's game identity from its page texts.
type Detector interface {
	Detect(ctx context.Context, pages []string, contentType providers.ContentType, rec providers.UsageRecorder) *providers.ClassificationResult
}

// Categorizer labels content sections against the taxonomy.
type Categorizer interface {
	Categorize(ctx context.Context, sections []string, hint providers.ContextHint, rec providers.UsageRecorder) []providers.LabelSet
}

// Runtime bundles the dependencies the pipeline stages require. It is
// constructed by higher-level composition code from infrastructure and
// domain systems.
type Runtime struct {
	Documents   documents.System
	Extractor   TextExtractor
	Detector    Detector
	Categorizer Categorizer
	Records     records.System
	Logger      *slog.Logger
}
