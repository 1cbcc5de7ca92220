package records

import (
	"errors"
	"net/http"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/collections"
)

var (
	// ErrDocumentStore marks a failed document-store write. The commit
	// aborts; nothing was persisted for this attempt.
	ErrDocumentStore = errors.New("document store unavailable")
	// ErrSemanticStore marks a failed semantic-store write after the
	// document store accepted the record. The record is partially
	// committed and repairable.
	ErrSemanticStore = errors.New("semantic store unavailable")
	ErrNotFound      = errors.New("record not found")
	ErrNoSections    = errors.New("record has no sections")
	ErrEmptyQuery    = errors.New("search query is empty")
)

func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyQuery), errors.Is(err, collections.ErrInvalidPath):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoSections):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrDocumentStore), errors.Is(err, ErrSemanticStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
