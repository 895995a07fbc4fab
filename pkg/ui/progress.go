package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pyrate-scanner/pyrate/pkg/aggregator"
	"github.com/pyrate-scanner/pyrate/pkg/output/dispatcher"
	"github.com/pyrate-scanner/pyrate/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Hook = (*ProgressHook)(nil)

// ProgressHook streams one line per finished plugin as a scan runs:
//
//	[2/5] ✓ csrf               1 finding   120ms
//
// It writes plain lines rather than redrawing, so the output stays
// readable when piped into CI logs.
type ProgressHook struct {
	w     io.Writer
	mu    sync.Mutex
	scans map[string]*scanProgress
}

type scanProgress struct {
	target string
	total  int
	done   int
}

// NewProgressHook creates a progress printer writing to w.
func NewProgressHook(w io.Writer) *ProgressHook {
	return &ProgressHook{w: w, scans: make(map[string]*scanProgress)}
}

// EventTypes returns the events the hook prints.
func (h *ProgressHook) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTypeScanStart,
		events.EventTypePluginOutcome,
		events.EventTypeScanComplete,
	}
}

// OnEvent prints the progress line for e. It never fails.
func (h *ProgressHook) OnEvent(_ context.Context, e events.Event) error {
	if IsSilent() {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	switch ev := e.(type) {
	case *events.ScanStartEvent:
		h.scans[ev.ScanID()] = &scanProgress{target: ev.Target, total: len(ev.Plugins)}
		fmt.Fprintf(h.w, "%s Scanning %s with %d plugin(s)\n",
			BannerStyle.Render(Icon("▶", ">")), URLStyle.Render(ev.Target), len(ev.Plugins))

	case *events.PluginOutcomeEvent:
		sp := h.scans[ev.ScanID()]
		if sp == nil {
			sp = &scanProgress{target: ev.Target}
			h.scans[ev.ScanID()] = sp
		}
		sp.done++
		counter := fmt.Sprintf("[%d/%d]", sp.done, max(sp.total, sp.done))

		var tail string
		if ev.Status == aggregator.StatusOK {
			noun := "findings"
			if ev.Findings == 1 {
				noun = "finding"
			}
			tail = fmt.Sprintf("%d %s", ev.Findings, noun)
		} else {
			tail = string(ev.Reason)
			if ev.Detail != "" {
				tail += ": " + truncate(ev.Detail, 60)
			}
			tail = SubtitleStyle.Render(tail)
		}
		fmt.Fprintf(h.w, "%s %s %s %s %s\n",
			BracketStyle.Render(counter),
			StatusStyle(ev.Status).Render(statusLabel(ev.Status)),
			lpad(ev.Plugin, 22),
			tail,
			SubtitleStyle.Render(FormatDuration(time.Duration(ev.DurationMs)*time.Millisecond)),
		)

	case *events.ScanCompleteEvent:
		delete(h.scans, ev.ScanID())
		fmt.Fprintf(h.w, "%s %s %s in %s\n",
			StateStyle(ev.State).Render(Icon("■", "#")),
			URLStyle.Render(ev.Target),
			StateStyle(ev.State).Render(ev.State.Label()),
			FormatDuration(time.Duration(ev.DurationMs)*time.Millisecond),
		)
	}
	return nil
}

func lpad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + fmt.Sprintf("%*s", n-len(s), "")
}
