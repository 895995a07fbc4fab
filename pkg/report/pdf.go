package report

import (
	"fmt"
	"io"
	"strings"

	gofpdf "github.com/go-pdf/fpdf"

	"github.com/pyrate-scanner/pyrate/pkg/aggregator"
	"github.com/pyrate-scanner/pyrate/pkg/finding"
)

var pdfSeverityColors = map[finding.Severity][3]int{
	finding.Critical: {127, 29, 29},
	finding.High:     {220, 38, 38},
	finding.Medium:   {217, 119, 6},
	finding.Low:      {37, 99, 235},
	finding.Info:     {100, 116, 139},
}

var pdfStatusColors = map[aggregator.Status][3]int{
	aggregator.StatusOK:       {22, 163, 74},
	aggregator.StatusFailed:   {220, 38, 38},
	aggregator.StatusTimedOut: {217, 119, 6},
}

// pdfWriter renders a Document with the core Helvetica font. Text goes
// through a cp1252 translator because core fonts are not UTF-8.
type pdfWriter struct {
	doc *Document
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func renderPDF(w io.Writer, doc *Document, compress bool) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetTitle(doc.Tool+" scan report", true)
	pdf.SetCreator(doc.Tool+" "+doc.Version, true)
	pdf.SetCreationDate(doc.GeneratedAt)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AliasNbPages("")

	pw := &pdfWriter{doc: doc, pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetFooterFunc(pw.footer)

	pw.addCover()
	for _, s := range doc.Scans {
		pw.addScan(s)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("report: render pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("report: write pdf: %w", err)
	}
	return nil
}

func (pw *pdfWriter) footer() {
	pdf := pw.pdf
	pdf.SetY(-12)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(128, 128, 128)
	pdf.CellFormat(0, 8, fmt.Sprintf("%s %s  |  Page %d/{nb}", pw.doc.Tool, pw.doc.Version, pdf.PageNo()), "", 0, "C", false, 0, "")
}

func (pw *pdfWriter) addSectionHeader(title string) {
	pdf := pw.pdf
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 10, pw.tr(title), "", 1, "L", false, 0, "")
	x, y := pdf.GetXY()
	pageW, _ := pdf.GetPageSize()
	pdf.SetDrawColor(203, 213, 225)
	pdf.Line(x, y, pageW-15, y)
	pdf.Ln(4)
}

func (pw *pdfWriter) addCover() {
	pdf := pw.pdf
	doc := pw.doc
	pdf.AddPage()

	pdf.SetFillColor(30, 41, 59)
	pageW, _ := pdf.GetPageSize()
	pdf.Rect(0, 0, pageW, 45, "F")
	pdf.SetXY(15, 14)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(0, 10, pw.tr(strings.ToUpper(doc.Tool)+" Scan Report"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(203, 213, 225)
	pdf.CellFormat(0, 6, "Generated "+doc.GeneratedAt.Format("2006-01-02 15:04:05 MST"), "", 1, "L", false, 0, "")
	pdf.SetY(55)

	pw.addSectionHeader("Summary")
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(60, 60, 60)
	pw.keyValue("Targets", fmt.Sprintf("%d", doc.Totals.Targets))
	pw.keyValue("Findings", fmt.Sprintf("%d", doc.Totals.Findings))
	pw.keyValue("Incomplete scans", fmt.Sprintf("%d", doc.Totals.Failed))
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(30, 41, 59)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(60, 8, "Severity", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Count", "1", 1, "C", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, sev := range finding.Severities {
		c := pdfSeverityColors[sev]
		pdf.SetTextColor(c[0], c[1], c[2])
		pdf.CellFormat(60, 7, sev.Label(), "1", 0, "L", false, 0, "")
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(30, 7, fmt.Sprintf("%d", doc.Totals.BySeverity[sev]), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(6)

	if len(doc.Scans) > 0 {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(30, 41, 59)
		pdf.SetTextColor(255, 255, 255)
		pdf.CellFormat(100, 8, "Target", "1", 0, "L", true, 0, "")
		pdf.CellFormat(45, 8, "State", "1", 0, "C", true, 0, "")
		pdf.CellFormat(0, 8, "Findings", "1", 1, "C", true, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(60, 60, 60)
		for _, s := range doc.Scans {
			pdf.CellFormat(100, 7, pw.tr(clip(s.Target, 60)), "1", 0, "L", false, 0, "")
			pdf.CellFormat(45, 7, s.State.Label(), "1", 0, "C", false, 0, "")
			pdf.CellFormat(0, 7, fmt.Sprintf("%d", len(s.Findings)), "1", 1, "C", false, 0, "")
		}
	}
}

func (pw *pdfWriter) keyValue(k, v string) {
	pw.pdf.SetFont("Helvetica", "B", 10)
	pw.pdf.CellFormat(45, 6, pw.tr(k), "", 0, "L", false, 0, "")
	pw.pdf.SetFont("Helvetica", "", 10)
	pw.pdf.MultiCell(0, 6, pw.tr(v), "", "L", false)
}

func (pw *pdfWriter) addScan(s Scan) {
	pdf := pw.pdf
	pdf.AddPage()
	pw.addSectionHeader("Target: " + clip(s.Target, 70))

	pdf.SetTextColor(60, 60, 60)
	pw.keyValue("Scan ID", s.ID)
	pw.keyValue("State", s.State.Label())
	pw.keyValue("Started", s.StartedAt.Format("2006-01-02 15:04:05 MST"))
	pw.keyValue("Duration", formatDuration(s.Elapsed()))
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 8, "Plugin outcomes", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(30, 41, 59)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(50, 7, "Plugin", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 7, "Status", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 7, "Findings", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Duration", "1", 0, "C", true, 0, "")
	pdf.CellFormat(0, 7, "Detail", "1", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for i, r := range s.Rows {
		if i%2 == 0 {
			pdf.SetFillColor(248, 250, 252)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(50, 7, pw.tr(r.Plugin), "1", 0, "L", true, 0, "")
		c := pdfStatusColors[r.Status]
		pdf.SetTextColor(c[0], c[1], c[2])
		pdf.CellFormat(25, 7, statusMark(r.Status), "1", 0, "C", true, 0, "")
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", r.Findings), "1", 0, "C", true, 0, "")
		pdf.CellFormat(25, 7, formatDuration(r.Duration), "1", 0, "C", true, 0, "")
		detail := string(r.Reason)
		if r.Detail != "" {
			detail += ": " + r.Detail
		}
		pdf.CellFormat(0, 7, pw.tr(clip(detail, 45)), "1", 1, "L", true, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 8, "Findings", "", 1, "L", false, 0, "")
	if len(s.Findings) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.SetTextColor(22, 163, 74)
		pdf.CellFormat(0, 7, "No vulnerabilities found.", "", 1, "L", false, 0, "")
		return
	}
	for i, f := range s.SortedBySeverity() {
		pw.addFinding(i+1, f)
	}
}

func (pw *pdfWriter) addFinding(n int, f finding.Vulnerability) {
	pdf := pw.pdf
	c, ok := pdfSeverityColors[f.Severity]
	if !ok {
		c = [3]int{128, 128, 128}
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(c[0], c[1], c[2])
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(22, 7, f.Severity.Label(), "", 0, "C", true, 0, "")
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 7, pw.tr(fmt.Sprintf(" %d. %s", n, clip(f.Title, 80))), "", 1, "L", false, 0, "")

	pdf.SetTextColor(60, 60, 60)
	plugin := f.Plugin
	if f.Category != "" {
		plugin += " (" + titleize(f.Category) + ")"
	}
	pw.keyValue("Plugin", plugin)
	pw.keyValue("Location", f.Location)
	for _, kv := range [][2]string{
		{"Description", f.Description},
		{"Evidence", clip(f.Evidence, 500)},
		{"Payload", f.Payload},
		{"Recommendation", f.Recommendation},
		{"Request", clip(f.Request, 1000)},
		{"Response", clip(f.Response, 1000)},
	} {
		if kv[1] != "" {
			pw.keyValue(kv[0], kv[1])
		}
	}
	pdf.Ln(3)
}

// clip shortens s to at most n runes, marking the cut.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
