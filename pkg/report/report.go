// Package report renders finalized scan results as files.
//
// Supported formats are json, html, txt, xml and pdf. Every format renders
// the same Document, built from one or more ScanResults by Build, which
// applies the redaction options (request/response excerpts, payloads and
// response size) once for all formats.
//
// Usage:
//
//	path, err := report.WriteFile(dir, "", "html", results, cfg.ReportOptions())
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pyrate-scanner/pyrate/pkg/aggregator"
	"github.com/pyrate-scanner/pyrate/pkg/defaults"
	"github.com/pyrate-scanner/pyrate/pkg/finding"
)

// Format names a report encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatHTML Format = "html"
	FormatText Format = "txt"
	FormatXML  Format = "xml"
	FormatPDF  Format = "pdf"
)

// Formats lists every supported format.
var Formats = []Format{FormatJSON, FormatHTML, FormatText, FormatXML, FormatPDF}

// ParseFormat converts a case-insensitive name to a Format. "text" is
// accepted for txt.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "text" {
		f = FormatText
	}
	if !slices.Contains(Formats, f) {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
	return f, nil
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, bool) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", false
	}
	f, err := ParseFormat(ext)
	return f, err == nil
}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string { return "." + string(f) }

// Options controls what a report includes.
type Options struct {
	// IncludeRequestResponse keeps raw exchange excerpts on findings.
	IncludeRequestResponse bool

	// IncludePayloads keeps the triggering payload on findings.
	IncludePayloads bool

	// MaxResponseSize truncates response excerpts, in bytes. Zero means
	// defaults.BufferSmall.
	MaxResponseSize int64

	// Now stamps the report; nil means time.Now.
	Now func() time.Time
}

// Document is the format-independent view every renderer consumes.
type Document struct {
	Tool        string    `json:"tool"`
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
	Totals      Totals    `json:"totals"`

	// Results holds the redacted results; Scans wraps the same values
	// with their outcome rows for the template formats.
	Results []*aggregator.ScanResult `json:"scans"`
	Scans   []Scan                   `json:"-"`
}

// Scan is one target's section of a report.
type Scan struct {
	*aggregator.ScanResult

	// Rows holds plugin outcomes in registration order.
	Rows []Row
}

// Row is one plugin line of the outcome table.
type Row struct {
	Plugin   string
	Status   aggregator.Status
	Reason   aggregator.ErrorKind
	Detail   string
	Findings int
	Duration time.Duration
}

// Totals aggregates counts across every scan in the document.
type Totals struct {
	Targets    int                      `json:"targets"`
	Findings   int                      `json:"findings"`
	BySeverity map[finding.Severity]int `json:"by_severity"`
	Failed     int                      `json:"failed_scans"`
}

// Build assembles a Document from finalized results. Results are copied;
// the inputs are not modified.
func Build(results []*aggregator.ScanResult, opts Options) *Document {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	doc := &Document{
		Tool:        defaults.ToolName,
		Version:     defaults.Version,
		GeneratedAt: now().UTC(),
		Totals:      Totals{BySeverity: make(map[finding.Severity]int, len(finding.Severities))},
	}
	for _, sev := range finding.Severities {
		doc.Totals.BySeverity[sev] = 0
	}

	for _, r := range results {
		if r == nil {
			continue
		}
		cp := *r
		cp.Findings = redactAll(r.Findings, opts)
		cp.Outcomes = make(map[string]aggregator.Outcome, len(r.Outcomes))
		for name, o := range r.Outcomes {
			o.Findings = redactAll(o.Findings, opts)
			cp.Outcomes[name] = o
		}
		doc.Results = append(doc.Results, &cp)
		doc.Scans = append(doc.Scans, Scan{ScanResult: &cp, Rows: rows(&cp)})

		doc.Totals.Targets++
		doc.Totals.Findings += len(cp.Findings)
		for sev, n := range cp.Summary.BySeverity {
			doc.Totals.BySeverity[sev] += n
		}
		if !cp.Succeeded() {
			doc.Totals.Failed++
		}
	}
	return doc
}

func rows(r *aggregator.ScanResult) []Row {
	out := make([]Row, 0, len(r.Plugins))
	for _, name := range r.Plugins {
		o, ok := r.Outcomes[name]
		if !ok {
			continue
		}
		out = append(out, Row{
			Plugin:   name,
			Status:   o.Status,
			Reason:   o.Reason,
			Detail:   o.Detail,
			Findings: len(o.Findings),
			Duration: o.Duration,
		})
	}
	return out
}

func redactAll(in []finding.Vulnerability, opts Options) []finding.Vulnerability {
	if in == nil {
		return nil
	}
	out := make([]finding.Vulnerability, len(in))
	for i, v := range in {
		out[i] = redact(v, opts)
	}
	return out
}

func redact(v finding.Vulnerability, opts Options) finding.Vulnerability {
	if !opts.IncludeRequestResponse {
		v.Request = ""
		v.Response = ""
	} else {
		limit := opts.MaxResponseSize
		if limit <= 0 {
			limit = defaults.BufferSmall
		}
		if int64(len(v.Response)) > limit {
			v.Response = v.Response[:limit] + "\n[truncated]"
		}
	}
	if !opts.IncludePayloads {
		v.Payload = ""
	}
	return v
}

// Render writes results to w in the given format.
func Render(w io.Writer, format Format, results []*aggregator.ScanResult, opts Options) error {
	doc := Build(results, opts)
	switch format {
	case FormatJSON:
		return renderJSON(w, doc)
	case FormatHTML:
		return renderHTML(w, doc)
	case FormatText:
		return renderText(w, doc)
	case FormatXML:
		return renderXML(w, doc)
	case FormatPDF:
		return renderPDF(w, doc, true)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// DefaultName returns a timestamped file name such as
// pyrate-20260102-150405.html.
func DefaultName(format Format, at time.Time) string {
	return defaults.ToolName + "-" + at.UTC().Format("20060102-150405") + format.Ext()
}

// WriteFile renders results into a file and returns its path. With an
// empty path the file is created in dir under DefaultName. Parent
// directories are created as needed. The file is written only after
// rendering succeeds.
func WriteFile(dir, path string, format Format, results []*aggregator.ScanResult, opts Options) (string, error) {
	if path == "" {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		path = filepath.Join(dir, DefaultName(format, now()))
	}

	var buf bytes.Buffer
	if err := Render(&buf, format, results, opts); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("report: create directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("report: write %s: %w", path, err)
	}
	return path, nil
}
