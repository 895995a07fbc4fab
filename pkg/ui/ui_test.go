package ui

import (
	"bytes"
	"context"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyrate-scanner/pyrate/pkg/aggregator"
	"github.com/pyrate-scanner/pyrate/pkg/finding"
	"github.com/pyrate-scanner/pyrate/pkg/output/events"
	"github.com/pyrate-scanner/pyrate/pkg/plugin"
)

// ansiPattern matches CSI escape sequences such as colors and cursor moves.
var ansiPattern = regexp.MustCompile(`\x1b\[[\x30-\x3f]*[\x20-\x2f]*[\x40-\x7e]`)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

func assertNoANSI(t *testing.T, buf *bytes.Buffer) {
	t.Helper()
	if loc := ansiPattern.FindIndex(buf.Bytes()); loc != nil {
		t.Errorf("ANSI escape at byte %d: %q", loc[0], buf.String())
	}
}

func sampleResult(t *testing.T) *aggregator.ScanResult {
	t.Helper()
	agg := aggregator.New("https://shop.example.com/", []string{"security_headers", "csrf", "cors"})
	require.NoError(t, agg.Record("security_headers", aggregator.Ok([]finding.Vulnerability{{
		Plugin:   "security_headers",
		Category: "headers",
		Title:    "Missing Content-Security-Policy",
		Severity: finding.Medium,
		Location: "https://shop.example.com/",
		Evidence: "content-security-policy\n   header absent",
	}}).WithDuration(120*time.Millisecond)))
	require.NoError(t, agg.Record("csrf", aggregator.Ok([]finding.Vulnerability{{
		Plugin:   "csrf",
		Category: "session_management",
		Title:    "Form without anti-CSRF token",
		Severity: finding.High,
	}}).WithDuration(2*time.Second)))
	require.NoError(t, agg.Record("cors", aggregator.Failed(aggregator.KindHTTPError, "connection refused")))
	r, err := agg.Finalize(aggregator.StatePartiallyFailed)
	require.NoError(t, err)
	return r
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0ms"},
		{-time.Second, "0ms"},
		{850 * time.Millisecond, "850ms"},
		{1240 * time.Millisecond, "1.24s"},
		{123 * time.Second, "2m3s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in), tt.in.String())
	}
}

func TestTitle(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Information Disclosure", Title("information_disclosure"))
	assert.Equal(t, "Headers", Title("headers"))
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestTableAlignsColumns(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tb := &table{headers: []string{"A", "B"}}
	tb.add("long-value", "x")
	tb.add("s", "y")
	tb.render(&buf, "")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	col := strings.Index(lines[1], "x")
	assert.Equal(t, col, strings.Index(lines[0], "B"))
	assert.Equal(t, col, strings.Index(lines[2], "y"))
}

func TestPrintScanSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	PrintScanSummary(&buf, sampleResult(t))
	out := buf.String()

	assertNoANSI(t, &buf)
	for _, want := range []string{
		"Scan results",
		"https://shop.example.com/",
		"Partially failed",
		"2 ok, 1 failed, 0 timed out",
		"security_headers",
		"http_error: connection refused",
		"Findings (2)",
		"[high] [session_management] Form without anti-CSRF token",
		"-> content-security-policy header absent",
	} {
		assert.Contains(t, out, want)
	}
	// Highest severity first.
	assert.Less(t, strings.Index(out, "anti-CSRF"), strings.Index(out, "Content-Security-Policy"))
	assert.NotContains(t, out, "No vulnerabilities found.")
}

func TestPrintScanSummaryNoFindings(t *testing.T) {
	t.Parallel()

	agg := aggregator.New("https://clean.example.com/", []string{"cors"})
	require.NoError(t, agg.Record("cors", aggregator.Ok(nil)))
	r, err := agg.Finalize(aggregator.StateCompleted)
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintScanSummary(&buf, r)
	assert.Contains(t, buf.String(), "Completed")
	assert.Contains(t, buf.String(), "No vulnerabilities found.")
}

func TestPrintTotals(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := sampleResult(t)
	PrintTotals(&buf, []*aggregator.ScanResult{r})
	assert.Empty(t, buf.String(), "single target prints no footer")

	PrintTotals(&buf, []*aggregator.ScanResult{r, r})
	assert.Contains(t, buf.String(), "All targets (2 scanned, 2 incomplete, 4 findings)")
	assert.Contains(t, buf.String(), "HIGH")
}

func TestPrintPluginCatalog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	PrintPluginCatalog(&buf, nil, nil)
	assert.Contains(t, buf.String(), "No plugins match.")

	buf.Reset()
	metas := []plugin.Metadata{
		{Name: "csrf", Description: "Checks forms for anti-CSRF tokens", Category: "session_management", Risk: finding.High},
		{Name: "cors", Description: "Checks CORS policy", Category: "headers", Risk: finding.Medium},
	}
	PrintPluginCatalog(&buf, metas, func(name string) string {
		if name == "csrf" {
			return "builtin"
		}
		return "/opt/plugins/cors.tengo"
	})
	out := buf.String()
	assert.Contains(t, out, "Session Management")
	assert.Contains(t, out, "/opt/plugins/cors.tengo")
	assert.Contains(t, out, "2 plugin(s)")
}

func TestStyles(t *testing.T) {
	t.Parallel()

	for _, sev := range finding.Severities {
		assert.Equal(t, sev.Label(), SeverityStyle(sev).Render(sev.Label()))
	}
	assert.Equal(t, "ok", StatusStyle(aggregator.StatusOK).Render("ok"))
	assert.Equal(t, "Aborted", StateStyle(aggregator.StateAborted).Render("Aborted"))
}

func TestColorProfile(t *testing.T) {
	var buf bytes.Buffer

	t.Setenv("NO_COLOR", "")
	t.Setenv("FORCE_COLOR", "")
	assert.Equal(t, termenv.Ascii, ColorProfile(&buf, true))
	assert.Equal(t, termenv.Ascii, ColorProfile(&buf, false), "non-terminal writer")

	t.Setenv("FORCE_COLOR", "1")
	assert.Equal(t, termenv.ANSI, ColorProfile(&buf, false))

	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, termenv.Ascii, ColorProfile(&buf, false), "NO_COLOR wins over FORCE_COLOR")
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()
	assert.False(t, IsTerminal(&bytes.Buffer{}))
	assert.Equal(t, 80, TerminalWidth(&bytes.Buffer{}, 80))
}

func TestStatusMessages(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })

	PrintBanner()
	PrintConfigBanner([]Option{{Name: "Target", Value: "https://a.example"}, {Name: "Skipped"}})
	PrintSuccess("saved report")
	PrintWarning("plugin skipped")
	PrintInfo("loading plugins")

	out := buf.String()
	assert.Contains(t, out, "web vulnerability scanner")
	assert.Contains(t, out, "https://a.example")
	assert.NotContains(t, out, "Skipped")
	assert.Contains(t, out, "[+] saved report")
	assert.Contains(t, out, "[!] plugin skipped")
	assert.Contains(t, out, "loading plugins")
	assertNoANSI(t, &buf)
}

func TestSilentMode(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetSilent(true)
	t.Cleanup(func() {
		SetSilent(false)
		SetOutput(os.Stderr)
	})

	PrintBanner()
	PrintSection("Plugins")
	PrintSuccess("done")
	PrintWarning("careful")
	PrintInfo("note")
	assert.Empty(t, buf.String())

	PrintError("config invalid")
	assert.Contains(t, buf.String(), "[X] config invalid", "errors survive silent mode")

	buf.Reset()
	h := NewProgressHook(&buf)
	require.NoError(t, h.OnEvent(context.Background(), &events.ScanStartEvent{
		BaseEvent: events.NewBase(events.EventTypeScanStart, "s1"),
		Target:    "https://a.example",
	}))
	assert.Empty(t, buf.String())
}

func TestProgressHook(t *testing.T) {
	var buf bytes.Buffer
	h := NewProgressHook(&buf)
	ctx := context.Background()

	assert.ElementsMatch(t, []events.EventType{
		events.EventTypeScanStart, events.EventTypePluginOutcome, events.EventTypeScanComplete,
	}, h.EventTypes())

	require.NoError(t, h.OnEvent(ctx, &events.ScanStartEvent{
		BaseEvent: events.NewBase(events.EventTypeScanStart, "s1"),
		Target:    "https://a.example",
		Plugins:   []string{"csrf", "cors"},
	}))
	require.NoError(t, h.OnEvent(ctx, &events.PluginOutcomeEvent{
		BaseEvent:  events.NewBase(events.EventTypePluginOutcome, "s1"),
		Target:     "https://a.example",
		Plugin:     "csrf",
		Status:     aggregator.StatusOK,
		Findings:   1,
		DurationMs: 120,
	}))
	require.NoError(t, h.OnEvent(ctx, &events.PluginOutcomeEvent{
		BaseEvent:  events.NewBase(events.EventTypePluginOutcome, "s1"),
		Target:     "https://a.example",
		Plugin:     "cors",
		Status:     aggregator.StatusTimedOut,
		Reason:     aggregator.KindTimeout,
		Detail:     "no result within 2s",
		DurationMs: 2000,
	}))
	require.NoError(t, h.OnEvent(ctx, &events.ScanCompleteEvent{
		BaseEvent:  events.NewBase(events.EventTypeScanComplete, "s1"),
		Target:     "https://a.example",
		State:      aggregator.StatePartiallyFailed,
		DurationMs: 2100,
	}))

	out := buf.String()
	assert.Contains(t, out, "Scanning https://a.example with 2 plugin(s)")
	assert.Contains(t, out, "[1/2]")
	assert.Contains(t, out, "1 finding")
	assert.Contains(t, out, "[2/2]")
	assert.Contains(t, out, "timeout: no result within 2s")
	assert.Contains(t, out, "Partially failed in 2.10s")
	assertNoANSI(t, &buf)

	h.mu.Lock()
	assert.Empty(t, h.scans, "completed scans are forgotten")
	h.mu.Unlock()
}
