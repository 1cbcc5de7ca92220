// Package documents implements the uploaded-source registry. It tracks
// the original PDFs (metadata plus blob reference) that the extraction
// pipeline consumes, and the processing status each one has reached.
package documents

import (
	"time"

	"github.com/google/uuid"
)

// Processing status values. A document starts uploaded, becomes
// classified once a session has detected its game identity, and
// extracted once a record has been committed for it.
const (
	StatusUploaded   = "uploaded"
	StatusClassified = "classified"
	StatusExtracted  = "extracted"
	StatusFailed     = "failed"
)

// Document represents a registered source document with its metadata and
// blob storage reference.
type Document struct {
	ID           uuid.UUID `json:"id"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"content_type"`
	SizeBytes    int64     `json:"size_bytes"`
	PageCount    *int      `json:"page_count"`
	SourceISBN   *string   `json:"source_isbn,omitempty"`
	SourceAuthor string    `json:"source_author,omitempty"`
	StorageKey   string    `json:"storage_key"`
	Status       string    `json:"status"`
	UploadedAt   time.Time `json:"uploaded_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateCommand carries the data needed to upload and register a new
// document. Data holds the raw file bytes. PageCount is optional and may
// be extracted by the caller via pdfcpu; nil values are stored as NULL.
type CreateCommand struct {
	Data         []byte
	Filename     string
	ContentType  string
	SourceISBN   *string
	SourceAuthor string
	PageCount    *int
}
