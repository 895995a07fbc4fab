package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pyrate-scanner/pyrate/pkg/config"
	"github.com/pyrate-scanner/pyrate/pkg/finding"
	"github.com/pyrate-scanner/pyrate/pkg/output/dispatcher"
	"github.com/pyrate-scanner/pyrate/pkg/output/hooks"
	"github.com/pyrate-scanner/pyrate/pkg/output/writers"
	"github.com/pyrate-scanner/pyrate/pkg/report"
	"github.com/pyrate-scanner/pyrate/pkg/ui"
)

// outputSinks reports which optional sinks buildDispatcher attached, for
// the config banner.
type outputSinks struct {
	Metrics string
	Tracing string
	Webhook string
	Events  string
}

// buildDispatcher wires every event consumer the configuration asks for.
// On error the partially built dispatcher is closed.
func buildDispatcher(cfg *config.Config, f *scanFlags, logger *slog.Logger, stderr io.Writer) (*dispatcher.Dispatcher, outputSinks, error) {
	var sinks outputSinks
	disp := dispatcher.New(dispatcher.Config{Logger: logger})

	// Lifecycle logs duplicate the progress stream, so they are only
	// attached when someone asked for them.
	if f.Verbose || cfg.Logging.FilePath != "" {
		disp.RegisterHook(hooks.NewLoggerHook(logger))
	}
	if !f.Quiet {
		disp.RegisterHook(ui.NewProgressHook(stderr))
	}

	if port := cfg.Telemetry.MetricsPort; port > 0 {
		h, err := hooks.NewPrometheusHook(hooks.PrometheusOptions{
			Addr:   fmt.Sprintf(":%d", port),
			Logger: logger,
		})
		if err != nil {
			disp.Close()
			return nil, sinks, fmt.Errorf("metrics: %w", err)
		}
		disp.RegisterHook(h)
		sinks.Metrics = h.MetricsAddr()
	}

	if ep := cfg.Telemetry.OTLPEndpoint; ep != "" {
		h, err := hooks.NewOTelHook(hooks.OTelOptions{
			Endpoint: ep,
			Insecure: cfg.Telemetry.OTLPInsecure,
		})
		if err != nil {
			disp.Close()
			return nil, sinks, fmt.Errorf("tracing: %w", err)
		}
		disp.RegisterHook(h)
		sinks.Tracing = ep
	}

	if u := cfg.Telemetry.WebhookURL; u != "" {
		minSev, _ := finding.ParseSeverity(cfg.Telemetry.WebhookMinSeverity)
		h, err := hooks.NewWebhookHook(u, hooks.WebhookOptions{
			OnlyFindings: cfg.Telemetry.FindingsOnly,
			MinSeverity:  minSev,
			Logger:       logger,
		})
		if err != nil {
			disp.Close()
			return nil, sinks, fmt.Errorf("webhook: %w", err)
		}
		disp.RegisterHook(h)
		sinks.Webhook = u
	}

	if path := f.Events; path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				disp.Close()
				return nil, sinks, fmt.Errorf("events: %w", err)
			}
		}
		file, err := os.Create(path)
		if err != nil {
			disp.Close()
			return nil, sinks, fmt.Errorf("events: %w", err)
		}
		disp.RegisterWriter(writers.NewJSONLWriter(file, writers.JSONLOptions{
			OmitExchange: !cfg.Reports.IncludeRequestResponse,
			OnlyFindings: cfg.Telemetry.FindingsOnly,
		}))
		sinks.Events = path
	}

	return disp, sinks, nil
}

// resolveFormat picks the report format: the flag or config value when
// given explicitly, else the output file extension, else the config default.
func resolveFormat(cfg *config.Config, f *scanFlags) (report.Format, error) {
	if !f.isSet("f", "format") && f.Output != "" {
		if format, ok := report.FormatFromPath(f.Output); ok {
			return format, nil
		}
	}
	return report.ParseFormat(cfg.Reports.DefaultFormat)
}
