// Package events defines the scan lifecycle events published by the
// scheduler. Events are designed for JSON serialization so they can be
// streamed as JSONL and consumed by hooks.
//
// Every concrete event embeds BaseEvent, which carries the event type,
// timestamp and scan ID.
package events

import "time"

// EventType represents the type of output event.
type EventType string

const (
	// EventTypeScanStart indicates a scan of one target has started.
	EventTypeScanStart EventType = "scan_start"
	// EventTypePluginStart indicates a plugin was admitted to a slot.
	EventTypePluginStart EventType = "plugin_start"
	// EventTypePluginOutcome indicates a plugin run produced its outcome.
	EventTypePluginOutcome EventType = "plugin_outcome"
	// EventTypeFinding indicates a plugin reported a vulnerability.
	EventTypeFinding EventType = "finding"
	// EventTypeScanComplete indicates a scan reached a terminal state.
	EventTypeScanComplete EventType = "scan_complete"
)

// AllTypes lists every event type in lifecycle order.
var AllTypes = []EventType{
	EventTypeScanStart,
	EventTypePluginStart,
	EventTypePluginOutcome,
	EventTypeFinding,
	EventTypeScanComplete,
}

// Event is the base interface for all events.
type Event interface {
	EventType() EventType
	Timestamp() time.Time
	ScanID() string
}

// BaseEvent contains common fields for all events.
// It is designed to be embedded in specific event types.
type BaseEvent struct {
	Type EventType `json:"type"`
	Time time.Time `json:"timestamp"`
	Scan string    `json:"scan_id"`
}

// NewBase returns a BaseEvent stamped with the current UTC time.
func NewBase(t EventType, scanID string) BaseEvent {
	return BaseEvent{Type: t, Time: time.Now().UTC(), Scan: scanID}
}

// EventType returns the type of this event.
func (e BaseEvent) EventType() EventType { return e.Type }

// Timestamp returns when this event occurred.
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// ScanID returns the unique identifier for the scan that produced this event.
func (e BaseEvent) ScanID() string { return e.Scan }
