package events

import (
	"github.com/pyrate-scanner/pyrate/pkg/aggregator"
	"github.com/pyrate-scanner/pyrate/pkg/finding"
)

// PluginStartEvent is emitted when a plugin run is admitted to a slot.
type PluginStartEvent struct {
	BaseEvent
	Target   string `json:"target"`
	Plugin   string `json:"plugin"`
	Category string `json:"category,omitempty"`
	Slot     int    `json:"slot"`
}

// PluginOutcomeEvent is emitted exactly once per scheduled plugin,
// including plugins never admitted because of a deadline or cancellation.
type PluginOutcomeEvent struct {
	BaseEvent
	Target     string               `json:"target"`
	Plugin     string               `json:"plugin"`
	Status     aggregator.Status    `json:"status"`
	Reason     aggregator.ErrorKind `json:"reason,omitempty"`
	Detail     string               `json:"detail,omitempty"`
	Findings   int                  `json:"findings"`
	DurationMs int64                `json:"duration_ms"`
}

// FindingEvent is emitted for each vulnerability of an Ok outcome.
type FindingEvent struct {
	BaseEvent
	Target  string                `json:"target"`
	Finding finding.Vulnerability `json:"finding"`
}
