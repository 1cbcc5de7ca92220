package collections

import (
	"net/url"
	"time"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/pkg/repository"
)

// Collection summarizes the extraction records sharing one canonical
// collection path.
type Collection struct {
	Path            string    `json:"path"`
	ContentType     string    `json:"content_type"`
	GameType        string    `json:"game_type"`
	Edition         string    `json:"edition"`
	BookType        string    `json:"book_type"`
	Name            string    `json:"name"`
	Records         int       `json:"records"`
	Sections        int       `json:"sections"`
	LastExtractedAt time.Time `json:"last_extracted_at"`
}

// Filters contains optional filtering criteria for collection queries.
// Nil fields are ignored; all matching is exact on normalized segments.
type Filters struct {
	ContentType *string `json:"content_type,omitempty"`
	GameType    *string `json:"game_type,omitempty"`
	Edition     *string `json:"edition,omitempty"`
	BookType    *string `json:"book_type,omitempty"`
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Values are normalized so callers can filter by display spellings.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if ct := values.Get("content_type"); ct != "" {
		normalized := normalizeSegment(ct)
		f.ContentType = &normalized
	}
	if gt := values.Get("game_type"); gt != "" {
		normalized := normalizeSegment(gt)
		f.GameType = &normalized
	}
	if ed := values.Get("edition"); ed != "" {
		normalized := normalizeSegment(ed)
		f.Edition = &normalized
	}
	if bt := values.Get("book_type"); bt != "" {
		normalized := normalizeSegment(bt)
		f.BookType = &normalized
	}

	return f
}

func scanCollection(s repository.Scanner) (Collection, error) {
	var c Collection
	err := s.Scan(
		&c.Path,
		&c.ContentType,
		&c.GameType,
		&c.Edition,
		&c.BookType,
		&c.Name,
		&c.Records,
		&c.Sections,
		&c.LastExtractedAt,
	)
	return c, err
}
