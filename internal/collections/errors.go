package collections

import (
	"errors"
	"net/http"
)

// Domain errors for collection operations.
var (
	ErrNotFound    = errors.New("collection not found")
	ErrInvalidPath = errors.New("invalid collection path")
)

// MapHTTPStatus maps collection domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidPath) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
