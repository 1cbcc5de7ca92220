// Package records persists extraction results to the document store and
// mirrors them into the semantic store. The document store is the source
// of truth; the semantic store is a derived index rebuilt by the repair
// pass whenever the dual write is interrupted.
package records

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/collections"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/providers"
)

// SemanticState tracks whether a record's sections have reached the
// semantic store.
type SemanticState string

const (
	SemanticPending   SemanticState = "pending"
	SemanticCommitted SemanticState = "committed"
)

// CommitState is the outcome of one dual-write attempt.
type CommitState string

const (
	// CommitCommitted means both stores hold the record.
	CommitCommitted CommitState = "committed"
	// CommitPartial means only the document store holds the record; the
	// repair pass will backfill the semantic store.
	CommitPartial CommitState = "partially_committed"
)

// SourceInfo carries what is known about the imported source itself.
type SourceInfo struct {
	ISBN      *string `json:"isbn,omitempty"`
	Title     string  `json:"title,omitempty"`
	Author    string  `json:"author,omitempty"`
	PageCount int     `json:"page_count,omitempty"`
}

// Record is one persisted extraction result. Records are immutable after
// commit; re-processing the same content upserts onto the same
// (collection path, content hash) key.
type Record struct {
	ID           uuid.UUID      `json:"id"`
	DocumentID   *uuid.UUID     `json:"document_id,omitempty"`
	SessionID    *uuid.UUID     `json:"session_id,omitempty"`
	Collection   collections.ID `json:"collection"`
	Path         string         `json:"path"`
	ContentHash  string         `json:"content_hash"`
	Source       SourceInfo     `json:"source"`
	Confidence   float64        `json:"confidence"`
	Provider     providers.Name `json:"provider"`
	Model        string         `json:"model"`
	Degraded     bool           `json:"degraded"`
	SectionCount int            `json:"section_count"`
	Semantic     SemanticState  `json:"semantic_state"`
	ExtractedAt  time.Time      `json:"extracted_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Section is one ordered content unit of a record.
type Section struct {
	Position   int     `json:"position"`
	Page       int     `json:"page"`
	Title      string  `json:"title,omitempty"`
	Text       string  `json:"text"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	IsTable    bool    `json:"is_table"`
}

// HashSections derives the content hash identifying a record's text.
// Only section text participates: the same source re-imported yields the
// same hash even when labeling differs, which is what makes the upsert
// idempotent.
func HashSections(sections []Section) string {
	h := sha256.New()
	for _, section := range sections {
		h.Write([]byte(section.Text))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// NewRecord assembles an unpersisted record from a classified document.
// The ID is assigned here; the document store may replace it with the
// existing row's ID when the upsert hits a prior import.
func NewRecord(
	documentID, sessionID *uuid.UUID,
	collection collections.ID,
	result *providers.ClassificationResult,
	sections []Section,
	source SourceInfo,
) *Record {
	return &Record{
		ID:           uuid.New(),
		DocumentID:   documentID,
		SessionID:    sessionID,
		Collection:   collection,
		Path:         collection.Path(),
		ContentHash:  HashSections(sections),
		Source:       source,
		Confidence:   result.Confidence,
		Provider:     result.Provider,
		Model:        result.Model,
		Degraded:     result.Degraded,
		SectionCount: len(sections),
		Semantic:     SemanticPending,
	}
}
