package report

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pyrate-scanner/pyrate/pkg/aggregator"
	"github.com/pyrate-scanner/pyrate/pkg/finding"
)

var titleCase = cases.Title(language.English)

// titleize turns identifiers like "security_headers" into "Security Headers".
func titleize(s string) string {
	return titleCase.String(strings.ReplaceAll(s, "_", " "))
}

// reportFuncs are shared by the text and HTML templates, on top of sprig.
func reportFuncs() map[string]any {
	return map[string]any{
		"titleize":   titleize,
		"severities": func() []finding.Severity { return finding.Severities },
		"sevLabel":   func(s finding.Severity) string { return s.Label() },
		"dur":        formatDuration,
		"stamp":      func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
		"statusMark": statusMark,
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}

func statusMark(s aggregator.Status) string {
	switch s {
	case aggregator.StatusOK:
		return "OK"
	case aggregator.StatusTimedOut:
		return "TIMEOUT"
	default:
		return "FAILED"
	}
}
