// Package exitcode maps scan results to process exit codes for CI/CD
// pipelines.
//
// Exit codes:
//   - 0: every scan completed with no findings at or above the threshold
//   - 1: findings at or above the threshold
//   - 2: a scan partially failed or was aborted
//   - 3: invalid configuration, no scan ran
package exitcode

import (
	"fmt"
	"sync"

	"github.com/pyrate-scanner/pyrate/pkg/aggregator"
	"github.com/pyrate-scanner/pyrate/pkg/finding"
)

// Code represents a semantic exit code.
type Code int

const (
	// Success indicates every scan completed cleanly.
	Success Code = 0
	// Findings indicates at least one finding met the severity threshold.
	Findings Code = 1
	// ScanFailure indicates a scan ended PartiallyFailed or Aborted.
	ScanFailure Code = 2
	// Configuration indicates invalid configuration was provided.
	Configuration Code = 3
)

var codeStrings = map[Code]string{
	Success:       "success",
	Findings:      "findings_detected",
	ScanFailure:   "scan_failed",
	Configuration: "invalid_configuration",
}

var codeDescriptions = map[Code]string{
	Success:       "All scans completed with no findings at or above the threshold",
	Findings:      "One or more findings at or above the threshold",
	ScanFailure:   "One or more scans partially failed or were aborted",
	Configuration: "Invalid configuration provided",
}

// Config holds configuration for the exit code manager.
type Config struct {
	// FailSeverity is the lowest severity that produces Findings.
	// Default: medium
	FailSeverity finding.Severity
}

// DefaultConfig returns the default exit code configuration.
func DefaultConfig() Config {
	return Config{FailSeverity: finding.Medium}
}

// Manager accumulates scan results and picks the exit code.
type Manager struct {
	cfg Config
	mu  sync.Mutex

	scans       int
	findings    int
	failedScans int
	configError bool
}

// New creates a new exit code manager. An invalid threshold falls back to
// medium.
func New(cfg Config) *Manager {
	if !cfg.FailSeverity.IsValid() {
		cfg.FailSeverity = finding.Medium
	}
	return &Manager{cfg: cfg}
}

// Record folds one finalized scan into the tally. A nil result is ignored.
func (m *Manager) Record(r *aggregator.ScanResult) {
	if r == nil {
		return
	}
	n := r.CountAtOrAbove(m.cfg.FailSeverity)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans++
	m.findings += n
	if !r.Succeeded() {
		m.failedScans++
	}
}

// SetConfigError marks that configuration was rejected before scanning.
func (m *Manager) SetConfigError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configError = true
}

// ExitCode returns the exit code and a human-readable reason.
//
// Priority order (highest to lowest):
//  1. Configuration error
//  2. Partially failed or aborted scan
//  3. Findings at or above the threshold
//  4. Success
func (m *Manager) ExitCode() (Code, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.configError {
		return Configuration, codeDescriptions[Configuration]
	}
	if m.failedScans > 0 {
		return ScanFailure, fmt.Sprintf("%s (%d of %d)",
			codeDescriptions[ScanFailure], m.failedScans, m.scans)
	}
	if m.findings > 0 {
		return Findings, fmt.Sprintf("%s (threshold: %s, count: %d)",
			codeDescriptions[Findings], m.cfg.FailSeverity, m.findings)
	}
	return Success, codeDescriptions[Success]
}

// Stats returns the scan count, findings at or above the threshold, and
// the number of scans that did not complete.
func (m *Manager) Stats() (scans, findings, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scans, m.findings, m.failedScans
}

// CodeString returns the string representation of an exit code.
func CodeString(code Code) string {
	if s, ok := codeStrings[code]; ok {
		return s
	}
	return fmt.Sprintf("unknown_code_%d", code)
}

// CodeDescription returns a detailed description of an exit code.
func CodeDescription(code Code) string {
	if s, ok := codeDescriptions[code]; ok {
		return s
	}
	return fmt.Sprintf("Unknown exit code: %d", code)
}
