// Package defaults provides canonical default values for the scanner.
// Configuration, the CLI and component constructors all read from here so a
// zero-valued config field and an omitted YAML key resolve the same way.
//
// Usage:
//
//	cfg.MaxConcurrent = defaults.ConcurrencyMedium
//	cfg.RetryAttempts = defaults.RetryLow
package defaults

// ToolName is the product name used in banners, user agents and telemetry.
const ToolName = "pyrate"

// Version is the current pyrate version. Overridden at build time via
// -ldflags "-X github.com/pyrate-scanner/pyrate/pkg/defaults.Version=x.y.z".
var Version = "1.4.0"

// UserAgent is the default User-Agent header sent by the HTTP client.
const UserAgent = "Mozilla/5.0 (compatible; pyrate/1.4; +https://github.com/pyrate-scanner/pyrate)"

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "PYRATE_"

// ============================================================================
// CONCURRENCY SETTINGS
// ============================================================================

const (
	// ConcurrencyMinimal is for strictly sequential scans (1)
	ConcurrencyMinimal = 1

	// ConcurrencyLow is for fragile targets (5)
	ConcurrencyLow = 5

	// ConcurrencyMedium is the standard plugin slot count (10)
	ConcurrencyMedium = 10

	// ConcurrencyMax is the upper bound accepted by config validation (100)
	ConcurrencyMax = 100
)

// ============================================================================
// RETRY SETTINGS
// ============================================================================

const (
	// RetryNone disables retries (0)
	RetryNone = 0

	// RetryLow is the standard retry count for transient HTTP failures (3)
	RetryLow = 3

	// RetryMax is the upper bound accepted by config validation (10)
	RetryMax = 10
)

// ============================================================================
// BUFFER SIZES
// ============================================================================

const (
	// BufferSmall is the excerpt size used for evidence snippets (4KB)
	BufferSmall = 4 * 1024

	// BufferMax is the default response body cap (10MB)
	BufferMax = 10 * 1024 * 1024
)

// ============================================================================
// OUTPUT
// ============================================================================

const (
	// ReportFormat is the default report format.
	ReportFormat = "json"

	// ReportDir is the default report directory.
	ReportDir = "reports"

	// FailSeverity is the default exit-code threshold.
	FailSeverity = "medium"

	// MetricsPath is where the Prometheus hook serves metrics.
	MetricsPath = "/metrics"

	// ConfigFile is the default configuration file name.
	ConfigFile = "pyrate.yaml"
)
