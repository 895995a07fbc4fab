package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/pyrate-scanner/pyrate/pkg/cli"
	"github.com/pyrate-scanner/pyrate/pkg/config"
	"github.com/pyrate-scanner/pyrate/pkg/duration"
	"github.com/pyrate-scanner/pyrate/pkg/httpclient"
	"github.com/pyrate-scanner/pyrate/pkg/logging"
	"github.com/pyrate-scanner/pyrate/pkg/output/exitcode"
	"github.com/pyrate-scanner/pyrate/pkg/plugin"
	"github.com/pyrate-scanner/pyrate/pkg/report"
	"github.com/pyrate-scanner/pyrate/pkg/scheduler"
	"github.com/pyrate-scanner/pyrate/pkg/ui"
)

// =============================================================================
// SCAN COMMAND
// =============================================================================

func runScan(args []string, stdout, stderr io.Writer) int {
	fs, f := registerScanFlags(stderr)
	targets, err := f.parse(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return int(exitcode.Success)
		}
		return int(exitcode.Configuration)
	}

	ui.ConfigureColor(stderr, f.NoColor)
	ui.SetSilent(f.Quiet)
	defer ui.SetSilent(false)

	if len(targets) == 0 {
		return fail(exitcode.Configuration, "at least one target URL is required")
	}

	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return fail(exitcode.Configuration, "%v", err)
	}
	f.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return fail(exitcode.Configuration, "%v", err)
	}
	format, err := resolveFormat(cfg, f)
	if err != nil {
		return fail(exitcode.Configuration, "%v", err)
	}

	closeLog, err := logging.Setup(cfg.Logging, logging.Options{Verbose: f.Verbose, Quiet: f.Quiet, Output: stderr})
	if err != nil {
		return fail(exitcode.Configuration, "%v", err)
	}
	defer closeLog()
	logger := slog.Default()

	reg, warnings := loadRegistry(cfg, logger)
	for _, w := range warnings {
		ui.PrintWarning(w.Error())
	}

	sel := cfg.Selection()
	sel.Names = f.Plugins
	sel.Categories = f.Categories
	plugins, err := reg.Select(sel)
	if err == nil && len(plugins) == 0 {
		err = scheduler.ErrNoPluginsSelected
	}
	if err != nil {
		return fail(setupCode(err), "%v", err)
	}

	client, err := httpclient.New(cfg.HTTPClientConfig(), httpclient.WithLogger(logger))
	if err != nil {
		return fail(exitcode.Configuration, "%v", err)
	}

	disp, sinks, err := buildDispatcher(cfg, f, logger, stderr)
	if err != nil {
		return fail(exitcode.Configuration, "%v", err)
	}
	defer disp.Close()

	ui.PrintBanner()
	ui.PrintConfigBanner([]ui.Option{
		{Name: "Targets", Value: strings.Join(targets, ", ")},
		{Name: "Plugins", Value: pluginNames(plugins)},
		{Name: "Concurrency", Value: strconv.Itoa(cfg.Scanner.MaxConcurrentRequests)},
		{Name: "Plugin timeout", Value: cfg.Scanner.PluginTimeout.String()},
		{Name: "Request delay", Value: cfg.Scanner.DelayBetweenRequests.String()},
		{Name: "Deadline", Value: nonZero(cfg.Scanner.HardDeadline)},
		{Name: "Config", Value: cfg.Path},
		{Name: "Metrics", Value: sinks.Metrics},
		{Name: "Tracing", Value: sinks.Tracing},
		{Name: "Webhook", Value: httpclient.RedactURL(sinks.Webhook)},
		{Name: "Events", Value: sinks.Events},
	})

	ctx, stop := cli.SignalContext(context.Background(), duration.GracePeriod, func(os.Signal) {
		fmt.Fprintln(stderr)
		ui.PrintWarning("Interrupt received, finishing in-flight plugins (press Ctrl+C again to exit now)")
	})
	defer stop()

	sched := scheduler.New(cfg.SchedulerConfig(), client,
		scheduler.WithLogger(logger),
		scheduler.WithPublisher(disp),
	)
	results, err := sched.RunTargets(ctx, targets, plugins)
	if err != nil && len(results) == 0 {
		return fail(setupCode(err), "%v", err)
	}
	if err != nil {
		ui.PrintError(err.Error())
	}

	if !f.Quiet {
		for _, r := range results {
			ui.PrintScanSummary(stdout, r)
		}
		ui.PrintTotals(stdout, results)
	}

	mgr := exitcode.New(exitcode.Config{FailSeverity: cfg.FailSeverity()})
	for _, r := range results {
		mgr.Record(r)
	}

	path, werr := report.WriteFile(cfg.Reports.OutputDirectory, f.Output, format, results, cfg.ReportOptions())
	if werr != nil {
		ui.PrintError(werr.Error())
	} else if f.Quiet {
		fmt.Fprintln(stdout, path)
	} else {
		fmt.Fprintln(stderr)
		ui.PrintSuccess("Report written to " + path)
	}

	if cerr := disp.Close(); cerr != nil {
		logger.Warn("closing event outputs", slog.String("error", cerr.Error()))
	}
	if errors.Is(context.Cause(ctx), cli.ErrInterrupted) {
		ui.PrintWarning("Scan interrupted")
	}

	code, msg := mgr.ExitCode()
	if werr != nil && code < exitcode.ScanFailure {
		code, msg = exitcode.ScanFailure, "report could not be written"
	}
	if code != exitcode.Success {
		ui.PrintWarning(msg)
	}
	return int(code)
}

func pluginNames(plugins []plugin.Plugin) string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Metadata().Name
	}
	return strings.Join(names, ", ")
}

func nonZero(d config.Duration) string {
	if d <= 0 {
		return ""
	}
	return d.String()
}
