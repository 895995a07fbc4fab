package hooks

import (
	"context"
	"testing"
	"time"

	"github.com/pyrate-scanner/pyrate/pkg/aggregator"
	"github.com/pyrate-scanner/pyrate/pkg/finding"
	"github.com/pyrate-scanner/pyrate/pkg/output/events"
)

const testScanID = "scan-1"

// lifecycle returns the events of a two-plugin scan where "csrf" reports
// one finding, "cors" times out and "traversal" is never admitted.
func lifecycle() []events.Event {
	base := func(t events.EventType) events.BaseEvent { return events.NewBase(t, testScanID) }
	target := "https://example.com/"

	return []events.Event{
		&events.ScanStartEvent{
			BaseEvent: base(events.EventTypeScanStart),
			Target:    target,
			Plugins:   []string{"csrf", "cors", "traversal"},
			Config:    events.ScanConfig{MaxConcurrent: 2, PluginTimeoutMs: 1000},
		},
		&events.PluginStartEvent{BaseEvent: base(events.EventTypePluginStart), Target: target, Plugin: "csrf", Category: "forms", Slot: 0},
		&events.PluginStartEvent{BaseEvent: base(events.EventTypePluginStart), Target: target, Plugin: "cors", Category: "headers", Slot: 1},
		&events.FindingEvent{
			BaseEvent: base(events.EventTypeFinding),
			Target:    target,
			Finding: finding.Vulnerability{
				Plugin:    "csrf",
				Title:     "Form without CSRF token",
				Severity:  finding.Medium,
				Location:  target + "login",
				Timestamp: time.Now(),
			},
		},
		&events.PluginOutcomeEvent{BaseEvent: base(events.EventTypePluginOutcome), Target: target, Plugin: "csrf", Status: aggregator.StatusOK, Findings: 1, DurationMs: 120},
		&events.PluginOutcomeEvent{BaseEvent: base(events.EventTypePluginOutcome), Target: target, Plugin: "cors", Status: aggregator.StatusTimedOut, Reason: aggregator.KindTimeout, Detail: "no result within 1s", DurationMs: 1000},
		&events.PluginOutcomeEvent{BaseEvent: base(events.EventTypePluginOutcome), Target: target, Plugin: "traversal", Status: aggregator.StatusFailed, Reason: aggregator.KindDeadlineExceeded},
		&events.ScanCompleteEvent{
			BaseEvent: base(events.EventTypeScanComplete),
			Target:    target,
			State:     aggregator.StateAborted,
			Summary: aggregator.Summary{
				Total:   1,
				Plugins: aggregator.PluginCounts{Total: 3, OK: 1, Failed: 1, TimedOut: 1},
			},
			DurationMs: 1500,
		},
	}
}

type eventHook interface {
	OnEvent(context.Context, events.Event) error
}

func replay(t *testing.T, h eventHook, evs []events.Event) {
	t.Helper()
	for _, e := range evs {
		if err := h.OnEvent(context.Background(), e); err != nil {
			t.Fatalf("OnEvent(%s): %v", e.EventType(), err)
		}
	}
}
