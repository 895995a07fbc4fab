package main

import (
	"errors"
	"fmt"

	"github.com/pyrate-scanner/pyrate/pkg/config"
	"github.com/pyrate-scanner/pyrate/pkg/output/exitcode"
	"github.com/pyrate-scanner/pyrate/pkg/plugin"
	"github.com/pyrate-scanner/pyrate/pkg/report"
	"github.com/pyrate-scanner/pyrate/pkg/scheduler"
	"github.com/pyrate-scanner/pyrate/pkg/target"
	"github.com/pyrate-scanner/pyrate/pkg/ui"
)

// fail prints a formatted error message and returns code.
// Use this instead of ui.PrintError plus a literal status for consistent
// CLI error handling.
func fail(code exitcode.Code, format string, args ...any) int {
	ui.PrintError(fmt.Sprintf(format, args...))
	return int(code)
}

// setupCode maps an error raised before any scan starts to an exit status.
// Everything the user can fix by changing flags or config is a
// configuration error.
func setupCode(err error) exitcode.Code {
	switch {
	case errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, config.ErrNotFound),
		errors.Is(err, plugin.ErrNotFound),
		errors.Is(err, plugin.ErrUnknownCategory),
		errors.Is(err, scheduler.ErrNoPluginsSelected),
		errors.Is(err, scheduler.ErrNoTargets),
		errors.Is(err, scheduler.ErrDuplicatePlugin),
		errors.Is(err, target.ErrInvalidURL),
		errors.Is(err, target.ErrUnsupportedScheme),
		errors.Is(err, target.ErrRestricted),
		errors.Is(err, report.ErrUnknownFormat):
		return exitcode.Configuration
	}
	return exitcode.ScanFailure
}
