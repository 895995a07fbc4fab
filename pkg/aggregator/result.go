package aggregator

import (
	"slices"
	"time"

	"github.com/pyrate-scanner/pyrate/pkg/finding"
)

// ScanResult is the finalized, immutable outcome of scanning one target.
type ScanResult struct {
	ID         string    `json:"id"`
	Target     string    `json:"target"`
	State      State     `json:"state"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Plugins lists the scheduled plugins in registration order.
	Plugins  []string           `json:"plugins"`
	Outcomes map[string]Outcome `json:"outcomes"`

	// Findings concatenates Ok outcomes in plugin order, then emission order.
	Findings []finding.Vulnerability `json:"findings"`
	Summary  Summary                 `json:"summary"`
	Errors   []PluginError           `json:"errors"`
}

// Summary holds counts derived from a ScanResult. It is always recomputed,
// never updated incrementally.
type Summary struct {
	Total      int                      `json:"total_findings"`
	BySeverity map[finding.Severity]int `json:"by_severity"`
	ByCategory map[string]int           `json:"by_category"`
	Plugins    PluginCounts             `json:"plugins"`
	Duration   time.Duration            `json:"duration_ns,format:nano"`
}

// PluginCounts tallies outcomes by status.
type PluginCounts struct {
	Total    int `json:"total"`
	OK       int `json:"ok"`
	Failed   int `json:"failed"`
	TimedOut int `json:"timed_out"`
}

// Summarize counts findings by severity and category. Every severity level
// is present in BySeverity, zero or not.
func Summarize(findings []finding.Vulnerability) Summary {
	s := Summary{
		Total:      len(findings),
		BySeverity: make(map[finding.Severity]int, len(finding.Severities)),
		ByCategory: make(map[string]int),
	}
	for _, sev := range finding.Severities {
		s.BySeverity[sev] = 0
	}
	for _, f := range findings {
		s.BySeverity[f.Severity]++
		cat := f.Category
		if cat == "" {
			cat = "uncategorized"
		}
		s.ByCategory[cat]++
	}
	return s
}

func countPlugins(outcomes map[string]Outcome) PluginCounts {
	c := PluginCounts{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status {
		case StatusOK:
			c.OK++
		case StatusTimedOut:
			c.TimedOut++
		default:
			c.Failed++
		}
	}
	return c
}

// Elapsed returns the scan wall time.
func (r *ScanResult) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// CountAtOrAbove returns the number of findings at or above sev.
func (r *ScanResult) CountAtOrAbove(sev finding.Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity.AtLeast(sev) {
			n++
		}
	}
	return n
}

// Highest returns the most severe finding level, or "" with no findings.
func (r *ScanResult) Highest() finding.Severity {
	var best finding.Severity
	for _, f := range r.Findings {
		if f.Severity.Score() > best.Score() {
			best = f.Severity
		}
	}
	return best
}

// SortedBySeverity returns a copy of the findings, most severe first. Ties
// keep registration order.
func (r *ScanResult) SortedBySeverity() []finding.Vulnerability {
	out := slices.Clone(r.Findings)
	slices.SortStableFunc(out, func(a, b finding.Vulnerability) int {
		return b.Severity.Score() - a.Severity.Score()
	})
	return out
}

// Succeeded reports whether every plugin produced an Ok outcome.
func (r *ScanResult) Succeeded() bool {
	return r.State == StateCompleted
}
