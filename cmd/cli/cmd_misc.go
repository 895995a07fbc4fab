package main

import (
	"errors"
	"flag"
	"io"

	"github.com/pyrate-scanner/pyrate/pkg/config"
	"github.com/pyrate-scanner/pyrate/pkg/defaults"
	"github.com/pyrate-scanner/pyrate/pkg/output/exitcode"
	"github.com/pyrate-scanner/pyrate/pkg/ui"
)

// =============================================================================
// INIT-CONFIG COMMAND
// =============================================================================

func runInitConfig(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("init-config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return int(exitcode.Success)
		}
		return int(exitcode.Configuration)
	}

	path := defaults.ConfigFile
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if err := config.WriteSample(path); err != nil {
		return fail(exitcode.Configuration, "%v", err)
	}
	ui.PrintSuccess("Configuration written to " + path)
	return int(exitcode.Success)
}
