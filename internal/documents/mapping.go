package documents

import (
	"net/url"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/pkg/query"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "documents", "d").
	Project("id", "ID").
	Project("filename", "Filename").
	Project("content_type", "ContentType").
	Project("size_bytes", "SizeBytes").
	Project("page_count", "PageCount").
	Project("source_isbn", "SourceISBN").
	Project("source_author", "SourceAuthor").
	Project("storage_key", "StorageKey").
	Project("status", "Status").
	Project("uploaded_at", "UploadedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "UploadedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for document queries.
// Nil fields are ignored. Status, ContentType, and SourceISBN use exact
// matching. Filename and SourceAuthor use case-insensitive contains
// matching.
type Filters struct {
	Status       *string `json:"status,omitempty"`
	Filename     *string `json:"filename,omitempty"`
	ContentType  *string `json:"content_type,omitempty"`
	SourceISBN   *string `json:"source_isbn,omitempty"`
	SourceAuthor *string `json:"source_author,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereContains("Filename", f.Filename).
		WhereEquals("ContentType", f.ContentType).
		WhereEquals("SourceISBN", f.SourceISBN).
		WhereContains("SourceAuthor", f.SourceAuthor)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if fn := values.Get("filename"); fn != "" {
		f.Filename = &fn
	}

	if ct := values.Get("content_type"); ct != "" {
		f.ContentType = &ct
	}

	if isbn := values.Get("source_isbn"); isbn != "" {
		f.SourceISBN = &isbn
	}

	if a := values.Get("source_author"); a != "" {
		f.SourceAuthor = &a
	}

	return f
}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	err := s.Scan(
		&d.ID,
		&d.Filename,
		&d.ContentType,
		&d.SizeBytes,
		&d.PageCount,
		&d.SourceISBN,
		&d.SourceAuthor,
		&d.StorageKey,
		&d.Status,
		&d.UploadedAt,
		&d.UpdatedAt,
	)
	return d, err
}
