package plugin

import "errors"

// Sentinel errors for plugin registration and lookup.
var (
	// ErrNotFound is returned when a plugin name is not registered.
	ErrNotFound = errors.New("plugin: not found")

	// ErrInvalidMetadata is returned for a missing name or bad risk level.
	ErrInvalidMetadata = errors.New("plugin: invalid metadata")

	// ErrDuplicatePlugin is returned when a name is already registered.
	// The first registration is kept.
	ErrDuplicatePlugin = errors.New("plugin: duplicate name")

	// ErrNilPlugin is returned when registering a nil plugin.
	ErrNilPlugin = errors.New("plugin: nil plugin")

	// ErrLoad is returned when a plugin file cannot be loaded.
	ErrLoad = errors.New("plugin: load failed")

	// ErrUnknownCategory is returned when a selection names a category no
	// registered plugin belongs to.
	ErrUnknownCategory = errors.New("plugin: unknown category")
)

// Warning records a plugin that was skipped during registration or
// discovery. Warnings are never fatal to the registry.
type Warning struct {
	// Source is the file path, or the plugin name for in-process plugins.
	Source string
	Err    error
}

func (w Warning) Error() string {
	return w.Source + ": " + w.Err.Error()
}

func (w Warning) Unwrap() error { return w.Err }
