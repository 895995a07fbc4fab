package finding

import "strings"

// Severity represents the severity level of a finding or the risk level of
// a plugin. Values are lowercase strings.
type Severity string

const (
	// Critical represents immediate compromise (RCE, auth bypass).
	Critical Severity = "critical"

	// High represents significant impact requiring prompt fix (path traversal).
	High Severity = "high"

	// Medium represents moderate impact (missing CSRF token, weak CORS).
	Medium Severity = "medium"

	// Low represents limited impact (version disclosure).
	Low Severity = "low"

	// Info represents informational findings with no direct security impact.
	Info Severity = "info"
)

// Severities lists every level from most to least severe.
var Severities = []Severity{Critical, High, Medium, Low, Info}

// ParseSeverity converts a case-insensitive name to a Severity.
// It returns false for unknown names.
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	return sev, sev.IsValid()
}

// IsValid reports whether s is a recognized severity level.
func (s Severity) IsValid() bool {
	switch s {
	case Critical, High, Medium, Low, Info:
		return true
	}
	return false
}

// IsRiskLevel reports whether s is usable as a plugin risk level.
// Plugins are rated LOW through CRITICAL; Info is reserved for findings.
func (s Severity) IsRiskLevel() bool {
	return s.IsValid() && s != Info
}

// Score returns a numeric score for sorting and comparison.
// Critical=5, High=4, Medium=3, Low=2, Info=1, Unknown=0.
func (s Severity) Score() int {
	switch s {
	case Critical:
		return 5
	case High:
		return 4
	case Medium:
		return 3
	case Low:
		return 2
	case Info:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is as severe as threshold or more.
// Unknown severities never meet a threshold.
func (s Severity) AtLeast(threshold Severity) bool {
	return s.Score() > 0 && s.Score() >= threshold.Score()
}

// String returns the severity as a string.
func (s Severity) String() string {
	return string(s)
}

// Label returns the uppercase display form (CRITICAL, HIGH, ...).
func (s Severity) Label() string {
	return strings.ToUpper(string(s))
}
