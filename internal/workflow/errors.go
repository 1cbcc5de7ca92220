package workflow

import "errors"

// Sentinel errors for pipeline stages. Store errors from the commit
// stage pass through untouched so callers can map them directly.
var (
	ErrFetchFailed   = errors.New("failed to fetch source document")
	ErrExtractFailed = errors.New("text extraction failed")
)
