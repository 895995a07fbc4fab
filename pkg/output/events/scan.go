package events

import (
	"github.com/pyrate-scanner/pyrate/pkg/aggregator"
)

// ScanStartEvent is emitted once per target before any plugin is admitted.
type ScanStartEvent struct {
	BaseEvent
	Target  string     `json:"target"`
	Plugins []string   `json:"plugins"`
	Config  ScanConfig `json:"config"`
}

// ScanConfig records the scheduler settings in effect.
type ScanConfig struct {
	MaxConcurrent   int   `json:"max_concurrent"`
	PluginTimeoutMs int64 `json:"plugin_timeout_ms"`
	DelayMs         int64 `json:"inter_request_delay_ms"`
	HardDeadlineMs  int64 `json:"hard_deadline_ms,omitempty"`
}

// ScanCompleteEvent is emitted after the result is finalized.
type ScanCompleteEvent struct {
	BaseEvent
	Target     string             `json:"target"`
	State      aggregator.State   `json:"state"`
	Summary    aggregator.Summary `json:"summary"`
	DurationMs int64              `json:"duration_ms"`

	// Result is the finalized scan. It is not serialized; the summary
	// carries the streamed view.
	Result *aggregator.ScanResult `json:"-"`
}
