// Package duration provides canonical time constants for the scanner.
//
// Usage:
//
//	ctx, cancel := context.WithTimeout(ctx, duration.PluginTimeout)
//
// Prefer these over literal time.Duration values in component defaults.
package duration

import "time"

// ============================================================================
// HTTP CLIENT
// ============================================================================

const (
	// HTTPRequest is the default per-request timeout (30s)
	HTTPRequest = 30 * time.Second

	// HTTPDial is the TCP connect timeout (5s)
	HTTPDial = 5 * time.Second

	// HTTPTLSHandshake is the TLS handshake timeout (5s)
	HTTPTLSHandshake = 5 * time.Second

	// HTTPIdleConn is how long idle pooled connections are kept (90s)
	HTTPIdleConn = 90 * time.Second
)

// ============================================================================
// RETRY BACKOFF
// ============================================================================

const (
	// RetryInitial is the first backoff delay (1s)
	RetryInitial = 1 * time.Second

	// RetryCeiling is the maximum backoff delay (10s)
	RetryCeiling = 10 * time.Second
)

// ============================================================================
// SCHEDULER
// ============================================================================

const (
	// PluginTimeout is the default budget for one plugin run (60s)
	PluginTimeout = 60 * time.Second

	// InterRequestDelay is the default per-slot spacing between requests (100ms)
	InterRequestDelay = 100 * time.Millisecond
)

// ============================================================================
// SHUTDOWN
// ============================================================================

const (
	// GracePeriod is how long a second interrupt is awaited before exit (10s)
	GracePeriod = 10 * time.Second

	// HookShutdown bounds metrics server and tracer shutdown (5s)
	HookShutdown = 5 * time.Second

	// HookConnect bounds exporter connection setup (10s)
	HookConnect = 10 * time.Second
)
