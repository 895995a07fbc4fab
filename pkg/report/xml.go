package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/pyrate-scanner/pyrate/pkg/finding"
)

// xmlDocument is the root XML element.
type xmlDocument struct {
	XMLName     xml.Name     `xml:"pyrate-report"`
	Version     string       `xml:"version,attr"`
	GeneratedAt string       `xml:"generatedAt,attr"`
	Generator   xmlGenerator `xml:"generator"`
	Totals      xmlTotals    `xml:"totals"`
	Scans       []xmlScan    `xml:"scan"`
}

type xmlGenerator struct {
	Name    string `xml:"name"`
	Version string `xml:"version"`
}

type xmlTotals struct {
	Targets     int           `xml:"targets"`
	Findings    int           `xml:"findings"`
	FailedScans int           `xml:"failedScans"`
	Severities  []xmlSevCount `xml:"bySeverity>severity"`
}

type xmlSevCount struct {
	Level string `xml:"level,attr"`
	Count int    `xml:",chardata"`
}

type xmlScan struct {
	ID         string       `xml:"id,attr"`
	State      string       `xml:"state,attr"`
	Target     string       `xml:"target"`
	StartedAt  string       `xml:"startedAt"`
	FinishedAt string       `xml:"finishedAt"`
	DurationMs int64        `xml:"durationMs"`
	Plugins    []xmlPlugin  `xml:"plugins>plugin"`
	Findings   []xmlFinding `xml:"findings>finding"`
}

type xmlPlugin struct {
	Name       string `xml:"name,attr"`
	Status     string `xml:"status,attr"`
	Reason     string `xml:"reason,attr,omitempty"`
	Findings   int    `xml:"findings,attr"`
	DurationMs int64  `xml:"durationMs,attr"`
	Detail     string `xml:",chardata"`
}

type xmlFinding struct {
	Fingerprint    string  `xml:"fingerprint,attr"`
	Severity       string  `xml:"severity,attr"`
	Plugin         string  `xml:"plugin"`
	Category       string  `xml:"category,omitempty"`
	Title          string  `xml:"title"`
	Description    string  `xml:"description,omitempty"`
	Location       string  `xml:"location"`
	Evidence       string  `xml:"evidence,omitempty"`
	Recommendation string  `xml:"recommendation,omitempty"`
	Payload        string  `xml:"payload,omitempty"`
	Request        string  `xml:"request,omitempty"`
	Response       string  `xml:"response,omitempty"`
	Confidence     float64 `xml:"confidence,omitempty"`
}

func renderXML(w io.Writer, doc *Document) error {
	out := xmlDocument{
		Version:     "1.0",
		GeneratedAt: doc.GeneratedAt.Format(time.RFC3339),
		Generator:   xmlGenerator{Name: doc.Tool, Version: doc.Version},
		Totals: xmlTotals{
			Targets:     doc.Totals.Targets,
			Findings:    doc.Totals.Findings,
			FailedScans: doc.Totals.Failed,
		},
	}
	for _, sev := range finding.Severities {
		out.Totals.Severities = append(out.Totals.Severities, xmlSevCount{
			Level: string(sev),
			Count: doc.Totals.BySeverity[sev],
		})
	}

	for _, s := range doc.Scans {
		xs := xmlScan{
			ID:         s.ID,
			State:      string(s.State),
			Target:     s.Target,
			StartedAt:  s.StartedAt.Format(time.RFC3339Nano),
			FinishedAt: s.FinishedAt.Format(time.RFC3339Nano),
			DurationMs: s.Elapsed().Milliseconds(),
		}
		for _, r := range s.Rows {
			xs.Plugins = append(xs.Plugins, xmlPlugin{
				Name:       r.Plugin,
				Status:     string(r.Status),
				Reason:     string(r.Reason),
				Findings:   r.Findings,
				DurationMs: r.Duration.Milliseconds(),
				Detail:     r.Detail,
			})
		}
		for _, f := range s.Findings {
			xs.Findings = append(xs.Findings, xmlFinding{
				Fingerprint:    f.Fingerprint(),
				Severity:       string(f.Severity),
				Plugin:         f.Plugin,
				Category:       f.Category,
				Title:          f.Title,
				Description:    f.Description,
				Location:       f.Location,
				Evidence:       f.Evidence,
				Recommendation: f.Recommendation,
				Payload:        f.Payload,
				Request:        f.Request,
				Response:       f.Response,
				Confidence:     f.Confidence,
			})
		}
		out.Scans = append(out.Scans, xs)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("report: encode xml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
