package sessions

import (
	"errors"
	"net/http"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/records"
)

// Domain errors for session operations.
var (
	ErrNotFound       = errors.New("session not found")
	ErrNotClassified  = errors.New("session has no parked classification")
	ErrBusy           = errors.New("too many active sessions")
	ErrInvalidRequest = errors.New("invalid session request")
)

// MapHTTPStatus maps session domain errors to HTTP status codes.
// Extraction errors fall through to the records mapping so store
// failures keep their 422/503 semantics.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotClassified):
		return http.StatusConflict
	case errors.Is(err, ErrBusy):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	}
	return records.MapHTTPStatus(err)
}
