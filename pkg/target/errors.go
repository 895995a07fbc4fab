package target

import "errors"

// Sentinel errors for target validation.
// Callers should use errors.Is() to check for these.
var (
	// ErrInvalidURL indicates the target is not a well-formed absolute URL.
	ErrInvalidURL = errors.New("target: invalid URL")

	// ErrUnsupportedScheme indicates a scheme other than http or https.
	ErrUnsupportedScheme = errors.New("target: unsupported scheme")

	// ErrRestricted indicates the host is in a range the policy disallows.
	ErrRestricted = errors.New("target: restricted address")
)
