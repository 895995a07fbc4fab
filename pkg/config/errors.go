package config

import (
	"errors"
	"fmt"
)

// Sentinel errors for configuration failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrInvalidConfig indicates the configuration is syntactically
	// or semantically invalid (bad YAML, out-of-range values, etc.).
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrNotFound indicates an explicitly named config file does not exist.
	ErrNotFound = errors.New("config: file not found")
)

// Error describes one invalid configuration value. It matches
// ErrInvalidConfig with errors.Is.
type Error struct {
	// Field is the dotted YAML path, e.g. "scanner.request_timeout".
	Field  string
	Value  any
	Reason string
}

func (e *Error) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("config: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Is reports whether target is ErrInvalidConfig.
func (e *Error) Is(target error) bool { return target == ErrInvalidConfig }
