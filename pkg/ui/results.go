package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pyrate-scanner/pyrate/pkg/aggregator"
	"github.com/pyrate-scanner/pyrate/pkg/finding"
	"github.com/pyrate-scanner/pyrate/pkg/plugin"
)

var titleCase = cases.Title(language.English)

// Title turns identifiers like "information_disclosure" into
// "Information Disclosure".
func Title(s string) string {
	return titleCase.String(strings.ReplaceAll(s, "_", " "))
}

// table lays out pre-styled cells in aligned columns. Widths are measured
// with lipgloss.Width so ANSI sequences do not count.
type table struct {
	headers []string
	rows    [][]string
}

func (t *table) add(cells ...string) { t.rows = append(t.rows, cells) }

func (t *table) render(w io.Writer, indent string) {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, r := range t.rows {
		for i, c := range r {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(c))
			}
		}
	}

	line := func(cells []string, style func(string) string) {
		var b strings.Builder
		b.WriteString(indent)
		for i, c := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(style(c))
			if i < len(cells)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(c)))
			}
		}
		fmt.Fprintln(w, b.String())
	}

	line(t.headers, func(s string) string { return HeaderStyle.Render(s) })
	for _, r := range t.rows {
		line(r, func(s string) string { return s })
	}
}

// FormatDuration renders d compactly: 850ms, 1.24s, 2m3s.
func FormatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0ms"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	default:
		return d.Round(time.Second).String()
	}
}

func statusLabel(s aggregator.Status) string {
	switch s {
	case aggregator.StatusOK:
		return Icon("✓", "+") + " ok"
	case aggregator.StatusTimedOut:
		return Icon("⏱", "!") + " timed out"
	default:
		return Icon("✗", "x") + " failed"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintScanSummary writes the outcome table, severity breakdown and
// findings of one scan. Per-plugin outcomes are always printed, including
// for partially failed and aborted scans.
func PrintScanSummary(w io.Writer, r *aggregator.ScanResult) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", TitleStyle.Render("Scan results"), URLStyle.Render(r.Target))
	fmt.Fprintf(w, "  %s %s\n", LabelStyle.Render("State"), StateStyle(r.State).Render(r.State.Label()))
	fmt.Fprintf(w, "  %s %s\n", LabelStyle.Render("Scan ID"), r.ID)
	fmt.Fprintf(w, "  %s %s\n", LabelStyle.Render("Duration"), FormatDuration(r.Elapsed()))
	fmt.Fprintf(w, "  %s %s\n", LabelStyle.Render("Plugins"), fmt.Sprintf("%d ok, %d failed, %d timed out",
		r.Summary.Plugins.OK, r.Summary.Plugins.Failed, r.Summary.Plugins.TimedOut))

	fmt.Fprintln(w, SectionStyle.Render("Plugin outcomes"))
	t := &table{headers: []string{"PLUGIN", "STATUS", "FINDINGS", "DURATION", "DETAIL"}}
	for _, name := range r.Plugins {
		o, ok := r.Outcomes[name]
		if !ok {
			continue
		}
		detail := ""
		if !o.IsOK() {
			detail = string(o.Reason)
			if o.Detail != "" {
				detail += ": " + truncate(o.Detail, 60)
			}
		}
		t.add(
			name,
			StatusStyle(o.Status).Render(statusLabel(o.Status)),
			fmt.Sprintf("%d", len(o.Findings)),
			FormatDuration(o.Duration),
			SubtitleStyle.Render(detail),
		)
	}
	t.render(w, "  ")

	fmt.Fprintln(w, SectionStyle.Render("Severity breakdown"))
	printSeverityCounts(w, r.Summary.BySeverity)

	if len(r.Findings) == 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, SuccessStyle.Render("  No vulnerabilities found."))
		return
	}
	fmt.Fprintln(w, SectionStyle.Render(fmt.Sprintf("Findings (%d)", len(r.Findings))))
	for _, f := range r.SortedBySeverity() {
		printFinding(w, f)
	}
}

func printSeverityCounts(w io.Writer, counts map[finding.Severity]int) {
	for _, sev := range finding.Severities {
		n := counts[sev]
		label := SeverityStyle(sev).Width(10).Render(sev.Label())
		bar := ""
		if n > 0 {
			bar = SeverityStyle(sev).Render(strings.Repeat(Icon("■", "#"), min(n, 40)))
		}
		fmt.Fprintf(w, "  %s %3d %s\n", label, n, bar)
	}
}

func printFinding(w io.Writer, f finding.Vulnerability) {
	sev := SeverityStyle(f.Severity).Render(strings.ToLower(f.Severity.Label()))
	cat := f.Category
	if cat == "" {
		cat = f.Plugin
	}
	fmt.Fprintf(w, "  %s%s%s %s%s%s %s\n",
		BracketStyle.Render("["), sev, BracketStyle.Render("]"),
		BracketStyle.Render("["), CategoryStyle.Render(cat), BracketStyle.Render("]"),
		f.Title,
	)
	if f.Location != "" {
		fmt.Fprintf(w, "      %s\n", SubtitleStyle.Render(f.Location))
	}
	if f.Evidence != "" {
		fmt.Fprintf(w, "      %s\n", SubtitleStyle.Render("-> "+truncate(strings.Join(strings.Fields(f.Evidence), " "), 100)))
	}
}

// PrintTotals writes the cross-target footer after several scans.
func PrintTotals(w io.Writer, results []*aggregator.ScanResult) {
	if len(results) < 2 {
		return
	}
	counts := make(map[finding.Severity]int, len(finding.Severities))
	total, incomplete := 0, 0
	for _, r := range results {
		total += len(r.Findings)
		for sev, n := range r.Summary.BySeverity {
			counts[sev] += n
		}
		if !r.Succeeded() {
			incomplete++
		}
	}
	fmt.Fprintln(w, SectionStyle.Render(fmt.Sprintf("All targets (%d scanned, %d incomplete, %d findings)", len(results), incomplete, total)))
	printSeverityCounts(w, counts)
}

// PrintPluginCatalog writes the registered plugins as a table. source maps
// a plugin name to where it was loaded from; it may be nil.
func PrintPluginCatalog(w io.Writer, metas []plugin.Metadata, source func(name string) string) {
	if len(metas) == 0 {
		fmt.Fprintln(w, WarningStyle.Render("No plugins match."))
		return
	}
	t := &table{headers: []string{"NAME", "CATEGORY", "RISK", "DESCRIPTION", "SOURCE"}}
	for _, m := range metas {
		src := ""
		if source != nil {
			src = source(m.Name)
		}
		t.add(
			ValueStyle.Render(m.Name),
			CategoryStyle.Render(Title(m.Category)),
			SeverityStyle(m.Risk).Render(m.Risk.Label()),
			truncate(m.Description, 60),
			SubtitleStyle.Render(src),
		)
	}
	t.render(w, "")
	fmt.Fprintf(w, "\n%d plugin(s)\n", len(metas))
}
