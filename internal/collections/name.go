// Package collections derives and serves the canonical collection
// identifiers that join the document and semantic stores. Naming is a
// pure function: both stores and every read path re-derive the same key
// from the same inputs.
package collections

import (
	"fmt"
	"strings"
)

// ID is a canonical collection identifier. Two IDs address the same
// collection iff all five segments match exactly.
type ID struct {
	ContentType string `json:"content_type"`
	GameType    string `json:"game_type"`
	Edition     string `json:"edition"`
	BookType    string `json:"book_type"`
	Collection  string `json:"collection"`
}

// specialSegments maps inputs whose generic normalization would be
// unreadable to their archive spelling.
var specialSegments = map[string]string{
	"d&d":  "dnd",
	"ad&d": "adnd",
}

// Name derives the canonical ID for a classified document. Every input
// produces a valid ID; empty segments become the literal "unknown".
// Naming is deterministic and idempotent: an already-normalized segment
// passes through unchanged.
func Name(contentType, gameType, edition, bookType, collectionHint string) ID {
	return ID{
		ContentType: normalizeSegment(contentType),
		GameType:    normalizeSegment(gameType),
		Edition:     normalizeSegment(edition),
		BookType:    normalizeSegment(bookType),
		Collection:  normalizeSegment(collectionHint),
	}
}

// Path joins the five segments with dots, the persisted key form.
func (id ID) Path() string {
	return strings.Join([]string{id.ContentType, id.GameType, id.Edition, id.BookType, id.Collection}, ".")
}

// ParsePath splits a persisted key back into an ID. Segments never
// contain dots, so the split is unambiguous.
func ParsePath(path string) (ID, error) {
	parts := strings.Split(path, ".")
	if len(parts) != 5 {
		return ID{}, fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}
	for _, part := range parts {
		if part == "" {
			return ID{}, fmt.Errorf("%w: %s", ErrInvalidPath, path)
		}
	}
	return ID{
		ContentType: parts[0],
		GameType:    parts[1],
		Edition:     parts[2],
		BookType:    parts[3],
		Collection:  parts[4],
	}, nil
}

func normalizeSegment(s string) string {
	lowered := strings.ToLower(strings.TrimSpace(s))

	if special, ok := specialSegments[lowered]; ok {
		return special
	}

	lowered = strings.ReplaceAll(lowered, "&", "and")
	lowered = strings.Join(strings.Fields(lowered), "_")

	var sb strings.Builder
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			sb.WriteRune(r)
		}
	}

	normalized := sb.String()
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
