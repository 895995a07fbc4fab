package exitcode

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pyrate-scanner/pyrate/pkg/aggregator"
	"github.com/pyrate-scanner/pyrate/pkg/finding"
)

func result(state aggregator.State, sevs ...finding.Severity) *aggregator.ScanResult {
	r := &aggregator.ScanResult{State: state}
	for _, s := range sevs {
		r.Findings = append(r.Findings, finding.Vulnerability{Title: "t", Severity: s})
	}
	return r
}

func TestNew(t *testing.T) {
	t.Parallel()

	assert.Equal(t, finding.Medium, New(DefaultConfig()).cfg.FailSeverity)
	assert.Equal(t, finding.Medium, New(Config{}).cfg.FailSeverity)
	assert.Equal(t, finding.Medium, New(Config{FailSeverity: "urgent"}).cfg.FailSeverity)
	assert.Equal(t, finding.High, New(Config{FailSeverity: finding.High}).cfg.FailSeverity)
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		threshold finding.Severity
		results   []*aggregator.ScanResult
		cfgErr    bool
		want      Code
	}{
		{name: "no scans", want: Success},
		{
			name:    "clean scan",
			results: []*aggregator.ScanResult{result(aggregator.StateCompleted)},
			want:    Success,
		},
		{
			name:    "findings below threshold",
			results: []*aggregator.ScanResult{result(aggregator.StateCompleted, finding.Low, finding.Info)},
			want:    Success,
		},
		{
			name:    "finding at threshold",
			results: []*aggregator.ScanResult{result(aggregator.StateCompleted, finding.Medium)},
			want:    Findings,
		},
		{
			name:      "custom threshold",
			threshold: finding.Critical,
			results:   []*aggregator.ScanResult{result(aggregator.StateCompleted, finding.High)},
			want:      Success,
		},
		{
			name:    "partially failed",
			results: []*aggregator.ScanResult{result(aggregator.StatePartiallyFailed)},
			want:    ScanFailure,
		},
		{
			name: "failure beats findings",
			results: []*aggregator.ScanResult{
				result(aggregator.StateCompleted, finding.Critical),
				result(aggregator.StateAborted),
			},
			want: ScanFailure,
		},
		{
			name:    "config error beats everything",
			results: []*aggregator.ScanResult{result(aggregator.StateAborted, finding.High)},
			cfgErr:  true,
			want:    Configuration,
		},
		{
			name:    "nil result ignored",
			results: []*aggregator.ScanResult{nil},
			want:    Success,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := New(Config{FailSeverity: tt.threshold})
			for _, r := range tt.results {
				m.Record(r)
			}
			if tt.cfgErr {
				m.SetConfigError()
			}
			code, reason := m.ExitCode()
			assert.Equal(t, tt.want, code)
			assert.NotEmpty(t, reason)
		})
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	m := New(DefaultConfig())
	m.Record(result(aggregator.StateCompleted, finding.High, finding.Low))
	m.Record(result(aggregator.StatePartiallyFailed, finding.Medium))

	scans, findings, failed := m.Stats()
	assert.Equal(t, 2, scans)
	assert.Equal(t, 2, findings)
	assert.Equal(t, 1, failed)
}

func TestConcurrentRecord(t *testing.T) {
	t.Parallel()

	m := New(DefaultConfig())
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Record(result(aggregator.StateCompleted, finding.High))
		}()
	}
	wg.Wait()

	_, findings, _ := m.Stats()
	assert.Equal(t, 50, findings)
	code, _ := m.ExitCode()
	assert.Equal(t, Findings, code)
}

func TestCodeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "success", CodeString(Success))
	assert.Equal(t, "findings_detected", CodeString(Findings))
	assert.Equal(t, "scan_failed", CodeString(ScanFailure))
	assert.Equal(t, "invalid_configuration", CodeString(Configuration))
	assert.Equal(t, "unknown_code_9", CodeString(9))
	assert.Contains(t, CodeDescription(9), "9")
	assert.Contains(t, CodeDescription(Configuration), "configuration")
}
