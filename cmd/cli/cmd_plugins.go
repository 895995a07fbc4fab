package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/pyrate-scanner/pyrate/pkg/config"
	"github.com/pyrate-scanner/pyrate/pkg/finding"
	"github.com/pyrate-scanner/pyrate/pkg/jsonutil"
	"github.com/pyrate-scanner/pyrate/pkg/logging"
	"github.com/pyrate-scanner/pyrate/pkg/output/exitcode"
	"github.com/pyrate-scanner/pyrate/pkg/plugin"
	"github.com/pyrate-scanner/pyrate/pkg/plugin/builtin"
	"github.com/pyrate-scanner/pyrate/pkg/ui"
)

// loadRegistry registers the built-in plugins, then discovers plugin files
// from the configured directories. Built-ins win name collisions.
func loadRegistry(cfg *config.Config, logger *slog.Logger) (*plugin.Registry, []plugin.Warning) {
	reg := plugin.NewRegistry(plugin.WithLogger(logger))
	builtin.RegisterAll(reg)
	warnings := reg.Discover(cfg.Plugins.PluginDirectories...)
	return reg, warnings
}

// pluginEntry is the JSON shape of one catalog row.
type pluginEntry struct {
	plugin.Metadata
	Source string `json:"source"`
}

// =============================================================================
// PLUGINS COMMAND
// =============================================================================

func runPlugins(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("plugins", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("c", "", "Configuration file")
	fs.StringVar(configPath, "config", "", "Configuration file")
	category := fs.String("category", "", "Only plugins in this category")
	risk := fs.String("risk", "", "Only plugins with this risk level")
	jsonOutput := fs.Bool("json", false, "Output in JSON format")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return int(exitcode.Success)
		}
		return int(exitcode.Configuration)
	}
	ui.ConfigureColor(stdout, *noColor)

	filter := plugin.Filter{Category: *category}
	if *risk != "" {
		sev, ok := finding.ParseSeverity(*risk)
		if !ok || !sev.IsRiskLevel() {
			return fail(exitcode.Configuration, "invalid risk level %q (want low, medium, high or critical)", *risk)
		}
		filter.Risk = sev
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fail(exitcode.Configuration, "%v", err)
	}
	logger, closeLog, err := loggerFor(cfg, stderr)
	if err != nil {
		return fail(exitcode.Configuration, "%v", err)
	}
	defer closeLog()

	reg, warnings := loadRegistry(cfg, logger)
	metas := reg.List(filter)

	if *jsonOutput {
		entries := make([]pluginEntry, len(metas))
		for i, m := range metas {
			entries[i] = pluginEntry{Metadata: m, Source: reg.Source(m.Name)}
		}
		data, err := jsonutil.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fail(exitcode.ScanFailure, "encode plugins: %v", err)
		}
		fmt.Fprintln(stdout, string(data))
	} else {
		ui.PrintPluginCatalog(stdout, metas, reg.Source)
	}

	for _, w := range warnings {
		ui.PrintWarning(w.Error())
	}
	return int(exitcode.Success)
}

// loggerFor builds a logger from cfg without installing it globally.
func loggerFor(cfg *config.Config, stderr io.Writer) (*slog.Logger, func() error, error) {
	return logging.New(cfg.Logging, logging.Options{Output: stderr})
}
