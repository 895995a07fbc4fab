// Package hooks provides dispatcher hooks that forward scan lifecycle events
// to logs, webhooks, Prometheus and OpenTelemetry.
package hooks

import (
	"context"
	"log/slog"

	"github.com/pyrate-scanner/pyrate/pkg/aggregator"
	"github.com/pyrate-scanner/pyrate/pkg/output/dispatcher"
	"github.com/pyrate-scanner/pyrate/pkg/output/events"
)

// orDefault returns l if non-nil, otherwise slog.Default().
func orDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

var _ dispatcher.Hook = (*LoggerHook)(nil)

// LoggerHook writes scan lifecycle events to a slog.Logger. Scan start and
// completion log at info, plugin activity at debug and failed plugin
// outcomes at warn.
type LoggerHook struct {
	logger *slog.Logger
}

// NewLoggerHook creates a LoggerHook. A nil logger uses slog.Default().
func NewLoggerHook(logger *slog.Logger) *LoggerHook {
	return &LoggerHook{logger: orDefault(logger)}
}

// OnEvent logs the event.
func (h *LoggerHook) OnEvent(ctx context.Context, event events.Event) error {
	log := h.logger.With(slog.String("scan_id", event.ScanID()))

	switch e := event.(type) {
	case *events.ScanStartEvent:
		log.InfoContext(ctx, "scan started",
			slog.String("target", e.Target),
			slog.Int("plugins", len(e.Plugins)),
			slog.Int("max_concurrent", e.Config.MaxConcurrent),
		)
	case *events.PluginStartEvent:
		log.DebugContext(ctx, "plugin started", slog.String("plugin", e.Plugin), slog.Int("slot", e.Slot))
	case *events.PluginOutcomeEvent:
		attrs := []any{
			slog.String("plugin", e.Plugin),
			slog.String("status", string(e.Status)),
			slog.Int64("duration_ms", e.DurationMs),
		}
		if e.Status == aggregator.StatusOK {
			log.DebugContext(ctx, "plugin finished", append(attrs, slog.Int("findings", e.Findings))...)
			return nil
		}
		log.WarnContext(ctx, "plugin failed", append(attrs, slog.String("reason", string(e.Reason)), slog.String("detail", e.Detail))...)
	case *events.FindingEvent:
		log.DebugContext(ctx, "finding",
			slog.String("plugin", e.Finding.Plugin),
			slog.String("severity", string(e.Finding.Severity)),
			slog.String("title", e.Finding.Title),
			slog.String("location", e.Finding.Location),
		)
	case *events.ScanCompleteEvent:
		log.InfoContext(ctx, "scan complete",
			slog.String("target", e.Target),
			slog.String("state", string(e.State)),
			slog.Int("findings", e.Summary.Total),
			slog.Int("failed_plugins", e.Summary.Plugins.Failed+e.Summary.Plugins.TimedOut),
			slog.Int64("duration_ms", e.DurationMs),
		)
	}
	return nil
}

// EventTypes returns nil to receive every event.
func (h *LoggerHook) EventTypes() []events.EventType { return nil }
