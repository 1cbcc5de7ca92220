package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnknownProvider indicates a provider name outside the supported set.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrInvalidContentType indicates a content type outside the supported set.
	ErrInvalidContentType = errors.New("invalid content type")
	// ErrNoTextContent indicates a provider response without a text block.
	ErrNoTextContent = errors.New("no text content in response")
)

// Kind classifies a provider failure for retry decisions.
type Kind string

const (
	// KindTimeout covers request timeouts and expired context deadlines.
	KindTimeout Kind = "timeout"
	// KindRateLimited covers HTTP 429 responses.
	KindRateLimited Kind = "rate_limited"
	// KindAuthFailed covers HTTP 401 and 403 responses.
	KindAuthFailed Kind = "auth_failed"
	// KindMalformed covers unparseable or contract-violating responses.
	KindMalformed Kind = "malformed"
	// KindUnknown covers transport failures and unrecognized API errors.
	KindUnknown Kind = "unknown"
)

// Error is a classified provider failure.
type Error struct {
	Provider Name
	Kind     Kind
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(provider Name, kind Kind, err error) *Error {
	return &Error{Provider: provider, Kind: kind, Err: err}
}

// KindOf extracts the failure kind from err, treating context expiry as a
// timeout and anything unclassified as unknown.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindUnknown
}

// Retryable reports whether a failure of the given kind may succeed on a
// later attempt against the same provider.
func Retryable(kind Kind) bool {
	switch kind {
	case KindTimeout, KindRateLimited, KindUnknown:
		return true
	}
	return false
}

func kindFromStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuthFailed
	case status == http.StatusRequestTimeout:
		return KindTimeout
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindUnknown
	}
}
