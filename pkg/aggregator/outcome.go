package aggregator

import (
	"time"

	"github.com/pyrate-scanner/pyrate/pkg/finding"
)

// Outcome is the tagged result of one plugin run. Findings is set only for
// StatusOK; Reason and Detail only for the other statuses.
type Outcome struct {
	Status   Status                  `json:"status"`
	Findings []finding.Vulnerability `json:"findings,omitempty"`
	Reason   ErrorKind               `json:"reason,omitempty"`
	Detail   string                  `json:"detail,omitempty"`
	Duration time.Duration           `json:"duration_ns,format:nano"`
}

// Ok returns a successful outcome. A nil findings slice is valid.
func Ok(findings []finding.Vulnerability) Outcome {
	return Outcome{Status: StatusOK, Findings: findings}
}

// Failed returns a failure outcome.
func Failed(reason ErrorKind, detail string) Outcome {
	return Outcome{Status: StatusFailed, Reason: reason, Detail: detail}
}

// TimedOut returns the outcome for a run abandoned at its timeout.
func TimedOut(detail string) Outcome {
	return Outcome{Status: StatusTimedOut, Reason: KindTimeout, Detail: detail}
}

// IsOK reports whether the run succeeded.
func (o Outcome) IsOK() bool { return o.Status == StatusOK }

// WithDuration returns o with Duration set.
func (o Outcome) WithDuration(d time.Duration) Outcome {
	o.Duration = d
	return o
}

// PluginError is one entry of ScanResult.Errors.
type PluginError struct {
	Plugin string    `json:"plugin"`
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail,omitempty"`
}
