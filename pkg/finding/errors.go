package finding

import "errors"

// Sentinel errors for finding validation.
// Callers should use errors.Is() to check for these.
var (
	// ErrInvalidSeverity indicates a severity string outside the
	// recognized levels.
	ErrInvalidSeverity = errors.New("finding: invalid severity")

	// ErrMissingTitle indicates a vulnerability without a title.
	ErrMissingTitle = errors.New("finding: missing title")
)
