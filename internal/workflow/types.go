package workflow

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/collections"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/documents"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/extraction"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/providers"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/records"
)

// Pipeline stage names reported in progress snapshots.
const (
	StageFetch      = "fetch"
	StageExtract    = "extract"
	StageDetect     = "detect"
	StageCategorize = "categorize"
	StagePersist    = "persist"
)

// Progress is a point-in-time snapshot of pipeline state. Total is 0 when
// the stage's unit count is not yet known.
type Progress struct {
	Stage string `json:"stage"`
	Done  int    `json:"done"`
	Total int    `json:"total"`
}

// emit sends a snapshot without blocking. A slow or absent consumer
// drops snapshots rather than stalling the pipeline.
func emit(ch chan<- Progress, stage string, done, total int) {
	if ch == nil {
		return
	}
	select {
	case ch <- Progress{Stage: stage, Done: done, Total: total}:
	default:
	}
}

// Analysis is the output of the classification phase and the input to the
// extraction phase. Pages carries the extracted text forward so the PDF
// is parsed once per session; it is not serialized.
type Analysis struct {
	DocumentID     uuid.UUID                       `json:"document_id"`
	Filename       string                          `json:"filename"`
	ContentType    providers.ContentType           `json:"content_type"`
	Title          string                          `json:"title"`
	PageCount      int                             `json:"page_count"`
	Pages          []extraction.Page               `json:"-"`
	Quality        extraction.Quality              `json:"quality"`
	Classification *providers.ClassificationResult `json:"classification"`
	Collection     collections.ID                  `json:"collection"`
	Source         records.SourceInfo              `json:"source"`
	CompletedAt    time.Time                       `json:"completed_at"`
}

// Overrides lets the caller correct detected metadata before extraction
// commits. Empty fields keep the detected values.
type Overrides struct {
	GameType   string `json:"game_type,omitempty"`
	Edition    string `json:"edition,omitempty"`
	BookType   string `json:"book_type,omitempty"`
	Collection string `json:"collection,omitempty"`
	Title      string `json:"title,omitempty"`
	Author     string `json:"author,omitempty"`
	ISBN       string `json:"isbn,omitempty"`
}

// nameCollection derives the canonical collection id from the analysis
// with any overrides applied. The extraction phase and every read path
// use this same derivation, so lookups always agree with what was
// written.
func nameCollection(a *Analysis, ov Overrides) collections.ID {
	cls := a.Classification
	hint := override(ov.Collection, override(a.Title, a.Filename))

	return collections.Name(
		string(a.ContentType),
		override(ov.GameType, cls.GameType),
		override(ov.Edition, cls.Edition),
		override(ov.BookType, cls.BookType),
		hint,
	)
}

func sourceInfo(doc *documents.Document, extracted *extraction.Result) records.SourceInfo {
	source := records.SourceInfo{
		Title:     extracted.Title,
		Author:    doc.SourceAuthor,
		PageCount: extracted.PageCount,
	}
	if source.Title == "" {
		source.Title = doc.Filename
	}
	if doc.SourceISBN != nil {
		isbn := *doc.SourceISBN
		source.ISBN = &isbn
	}
	return source
}

func override(v, fallback string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}
