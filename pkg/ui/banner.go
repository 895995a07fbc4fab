// Package ui renders terminal output for the CLI: the banner, the live
// plugin progress stream and the end-of-scan summary. Status messages go
// to stderr; scan summaries go to the writer the caller passes.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pyrate-scanner/pyrate/pkg/defaults"
)

// Global UI state
var (
	silentMode  bool
	noColorMode bool
	out         io.Writer = os.Stderr
	uiMu        sync.RWMutex
)

// SetSilent enables or disables silent mode (suppresses status output).
func SetSilent(silent bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	silentMode = silent
}

// IsSilent returns whether silent mode is enabled.
func IsSilent() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return silentMode
}

func setNoColor(v bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	noColorMode = v
}

// IsNoColor returns whether color is disabled.
func IsNoColor() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return noColorMode
}

// SetOutput redirects status messages, which default to stderr.
func SetOutput(w io.Writer) {
	uiMu.Lock()
	defer uiMu.Unlock()
	out = w
}

func output() io.Writer {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return out
}

const bannerArt = `
                        __
    ____  __  ___________ _/ /____
   / __ \/ / / / ___/ __ ` + "`" + `/ __/ _ \
  / /_/ / /_/ / /  / /_/ / /_/  __/
 / .___/\__, /_/   \__,_/\__/\___/
/_/    /____/
`

// bannerSeparator is the divider printed under the option block.
const bannerSeparator = "________________________________________________"

// PrintBanner prints the application banner with version info.
func PrintBanner() {
	if IsSilent() {
		return
	}
	w := output()
	for _, line := range strings.Split(bannerArt, "\n") {
		if line != "" {
			fmt.Fprintln(w, BannerStyle.Render(line))
		}
	}
	fmt.Fprintf(w, "          %s  web vulnerability scanner\n\n", VersionStyle.Render("v"+defaults.Version))
}

// Option is one line of the configuration banner.
type Option struct {
	Name  string
	Value string
}

// PrintConfigBanner prints the effective settings before a scan, in order.
// Options with empty values are skipped.
func PrintConfigBanner(options []Option) {
	if IsSilent() {
		return
	}
	w := output()
	for _, o := range options {
		if o.Value == "" {
			continue
		}
		fmt.Fprintf(w, " :: %s : %s\n", LabelStyle.Width(16).Render(o.Name), ValueStyle.Render(o.Value))
	}
	fmt.Fprintf(w, "%s\n\n", DividerStyle.Render(bannerSeparator))
}

// PrintSection prints a section header.
func PrintSection(title string) {
	if IsSilent() {
		return
	}
	w := output()
	fmt.Fprintln(w)
	fmt.Fprintln(w, SectionStyle.Render("> "+title))
	fmt.Fprintln(w, DividerStyle.Render(strings.Repeat("-", 60)))
}

// PrintSuccess prints a success message.
func PrintSuccess(message string) {
	if IsSilent() {
		return
	}
	fmt.Fprintln(output(), SuccessStyle.Render("  [+] "+message))
}

// PrintError prints an error message. It is shown even in silent mode.
func PrintError(message string) {
	fmt.Fprintln(output(), ErrorStyle.Render("  [X] "+message))
}

// PrintWarning prints a warning message.
func PrintWarning(message string) {
	if IsSilent() {
		return
	}
	fmt.Fprintln(output(), WarningStyle.Render("  [!] "+message))
}

// PrintInfo prints an informational message.
func PrintInfo(message string) {
	if IsSilent() {
		return
	}
	fmt.Fprintf(output(), "  %s %s\n", BannerStyle.Render("*"), message)
}
