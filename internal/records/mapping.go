package records

import (
	"net/url"
	"strconv"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/pkg/query"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "extraction_records", "er").
	Project("id", "ID").
	Project("document_id", "DocumentID").
	Project("session_id", "SessionID").
	Project("collection_path", "Path").
	Project("content_type", "ContentType").
	Project("game_type", "GameType").
	Project("edition", "Edition").
	Project("book_type", "BookType").
	Project("collection_name", "Name").
	Project("content_hash", "ContentHash").
	Project("source_isbn", "SourceISBN").
	Project("source_title", "SourceTitle").
	Project("source_author", "SourceAuthor").
	Project("source_pages", "SourcePages").
	Project("confidence", "Confidence").
	Project("provider", "Provider").
	Project("model", "Model").
	Project("degraded", "Degraded").
	Project("section_count", "SectionCount").
	Project("semantic_state", "Semantic").
	Project("extracted_at", "ExtractedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "ExtractedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for record queries.
// Nil fields are ignored. All matches are exact except Path, which uses
// case-insensitive contains matching so a partial dotted path narrows
// the listing.
type Filters struct {
	Path        *string `json:"collection_path,omitempty"`
	ContentType *string `json:"content_type,omitempty"`
	GameType    *string `json:"game_type,omitempty"`
	Edition     *string `json:"edition,omitempty"`
	BookType    *string `json:"book_type,omitempty"`
	Provider    *string `json:"provider,omitempty"`
	Semantic    *string `json:"semantic_state,omitempty"`
	Degraded    *bool   `json:"degraded,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereContains("Path", f.Path).
		WhereEquals("ContentType", f.ContentType).
		WhereEquals("GameType", f.GameType).
		WhereEquals("Edition", f.Edition).
		WhereEquals("BookType", f.BookType).
		WhereEquals("Provider", f.Provider).
		WhereEquals("Semantic", f.Semantic).
		WhereEquals("Degraded", f.Degraded)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if p := values.Get("collection_path"); p != "" {
		f.Path = &p
	}

	if ct := values.Get("content_type"); ct != "" {
		f.ContentType = &ct
	}

	if gt := values.Get("game_type"); gt != "" {
		f.GameType = &gt
	}

	if e := values.Get("edition"); e != "" {
		f.Edition = &e
	}

	if bt := values.Get("book_type"); bt != "" {
		f.BookType = &bt
	}

	if p := values.Get("provider"); p != "" {
		f.Provider = &p
	}

	if s := values.Get("semantic_state"); s != "" {
		f.Semantic = &s
	}

	if d := values.Get("degraded"); d != "" {
		if v, err := strconv.ParseBool(d); err == nil {
			f.Degraded = &v
		}
	}

	return f
}

func scanRecord(s repository.Scanner) (Record, error) {
	var r Record
	err := s.Scan(
		&r.ID,
		&r.DocumentID,
		&r.SessionID,
		&r.Path,
		&r.Collection.ContentType,
		&r.Collection.GameType,
		&r.Collection.Edition,
		&r.Collection.BookType,
		&r.Collection.Collection,
		&r.ContentHash,
		&r.Source.ISBN,
		&r.Source.Title,
		&r.Source.Author,
		&r.Source.PageCount,
		&r.Confidence,
		&r.Provider,
		&r.Model,
		&r.Degraded,
		&r.SectionCount,
		&r.Semantic,
		&r.ExtractedAt,
		&r.UpdatedAt,
	)
	return r, err
}

func scanSection(s repository.Scanner) (Section, error) {
	var sec Section
	err := s.Scan(
		&sec.Position,
		&sec.Page,
		&sec.Title,
		&sec.Text,
		&sec.Category,
		&sec.Confidence,
		&sec.IsTable,
	)
	return sec, err
}
