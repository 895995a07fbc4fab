package aggregator

import "errors"

var (
	// ErrUnexpectedPlugin is returned when recording an outcome for a plugin
	// that was not scheduled.
	ErrUnexpectedPlugin = errors.New("aggregator: unexpected plugin")

	// ErrDuplicateOutcome is returned when a plugin outcome is recorded twice.
	ErrDuplicateOutcome = errors.New("aggregator: outcome already recorded")

	// ErrFinalized is returned when recording after Finalize.
	ErrFinalized = errors.New("aggregator: scan already finalized")

	// ErrIncompleteScan is returned by Finalize when outcomes are missing.
	ErrIncompleteScan = errors.New("aggregator: incomplete scan")

	// ErrNotTerminal is returned by Finalize for a non-terminal state.
	ErrNotTerminal = errors.New("aggregator: state is not terminal")
)
