// Package config loads the pyrate configuration file.
//
// Values are layered: built-in defaults, then the YAML file, then a .env
// file in the working directory, then PYRATE_* environment variables. The
// result is validated once and converted into the immutable per-component
// configs (httpclient.Config, scheduler.Config) that constructors take.
//
// Usage:
//
//	cfg, err := config.Load("")
//	if err != nil { ... }
//	client, err := httpclient.New(cfg.HTTPClientConfig())
//	sched := scheduler.New(cfg.SchedulerConfig(), client)
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pyrate-scanner/pyrate/pkg/defaults"
	"github.com/pyrate-scanner/pyrate/pkg/duration"
	"github.com/pyrate-scanner/pyrate/pkg/finding"
	"github.com/pyrate-scanner/pyrate/pkg/httpclient"
	"github.com/pyrate-scanner/pyrate/pkg/plugin"
	"github.com/pyrate-scanner/pyrate/pkg/report"
	"github.com/pyrate-scanner/pyrate/pkg/scheduler"
)

// Bounds enforced by Validate.
const (
	MaxRequestTimeout = 300 * time.Second
	MaxDelay          = 5 * time.Second
)

// Formats lists the accepted report formats.
var Formats = []string{"json", "html", "txt", "xml", "pdf"}

// LogLevels lists the accepted logging levels.
var LogLevels = []string{"debug", "info", "warn", "error"}

// Config is the root of the configuration file.
type Config struct {
	Scanner   ScannerConfig   `yaml:"scanner"`
	Plugins   PluginsConfig   `yaml:"plugins"`
	Reports   ReportsConfig   `yaml:"reports"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Path is the file the configuration was read from; empty for defaults.
	Path string `yaml:"-"`
}

// ScannerConfig holds HTTP and scheduling settings.
type ScannerConfig struct {
	MaxConcurrentRequests int      `yaml:"max_concurrent_requests"`
	RequestTimeout        Duration `yaml:"request_timeout"`
	RetryAttempts         int      `yaml:"retry_attempts"`
	RetryBackoffMax       Duration `yaml:"retry_backoff_max"`
	DelayBetweenRequests  Duration `yaml:"delay_between_requests"`
	PluginTimeout         Duration `yaml:"plugin_timeout"`
	// HardDeadline caps a whole scan; zero disables it.
	HardDeadline        Duration `yaml:"hard_deadline"`
	UserAgent           string   `yaml:"user_agent"`
	FollowRedirects     bool     `yaml:"follow_redirects"`
	VerifySSL           bool     `yaml:"verify_ssl"`
	AllowPrivateTargets bool     `yaml:"allow_private_targets"`
	Proxy               string   `yaml:"proxy"`
}

// PluginsConfig controls which plugins run and where extra ones are found.
type PluginsConfig struct {
	// EnabledPlugins restricts the run to the listed names. Omitted (null)
	// means every registered plugin; an explicit empty list means none.
	EnabledPlugins    []string `yaml:"enabled_plugins"`
	DisabledPlugins   []string `yaml:"disabled_plugins"`
	PluginDirectories []string `yaml:"plugin_directories"`
}

// ReportsConfig controls report rendering.
type ReportsConfig struct {
	DefaultFormat          string `yaml:"default_format"`
	OutputDirectory        string `yaml:"output_directory"`
	IncludeRequestResponse bool   `yaml:"include_request_response"`
	IncludePayloads        bool   `yaml:"include_payloads"`
	MaxResponseSize        int64  `yaml:"max_response_size"`
	// FailSeverity is the lowest severity that makes the scan exit 1.
	FailSeverity string `yaml:"fail_severity"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	FilePath string `yaml:"file_path"`
}

// TelemetryConfig enables the metrics and tracing hooks.
type TelemetryConfig struct {
	// MetricsPort serves Prometheus metrics when non-zero.
	MetricsPort int `yaml:"metrics_port"`
	// OTLPEndpoint exports traces over gRPC when set.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
	// WebhookURL receives scan events as JSON POSTs when set.
	WebhookURL string `yaml:"webhook_url"`
	// WebhookMinSeverity drops webhook finding events below this level.
	WebhookMinSeverity string `yaml:"webhook_min_severity"`
	// FindingsOnly limits the webhook and the event stream to finding and
	// scan_complete events.
	FindingsOnly bool `yaml:"findings_only"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Scanner: ScannerConfig{
			MaxConcurrentRequests: defaults.ConcurrencyMedium,
			RequestTimeout:        Duration(duration.HTTPRequest),
			RetryAttempts:         defaults.RetryLow,
			RetryBackoffMax:       Duration(duration.RetryCeiling),
			DelayBetweenRequests:  Duration(duration.InterRequestDelay),
			PluginTimeout:         Duration(duration.PluginTimeout),
			UserAgent:             defaults.UserAgent,
			FollowRedirects:       true,
			VerifySSL:             true,
		},
		Reports: ReportsConfig{
			DefaultFormat:   defaults.ReportFormat,
			OutputDirectory: defaults.ReportDir,
			IncludePayloads: true,
			MaxResponseSize: defaults.BufferMax,
			FailSeverity:    defaults.FailSeverity,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SearchPaths returns the files Load tries when no path is given.
func SearchPaths() []string {
	paths := []string{defaults.ConfigFile}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, "."+defaults.ToolName, "config.yaml"))
	}
	return paths
}

// Load builds the configuration. An explicit path must exist; an empty path
// searches SearchPaths and falls back to defaults when none exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, p := range SearchPaths() {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	// .env only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: .env: %v", ErrInvalidConfig, err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	c.Path = path
	return nil
}

func (c *Config) normalize() {
	c.Reports.DefaultFormat = strings.ToLower(strings.TrimSpace(c.Reports.DefaultFormat))
	c.Reports.FailSeverity = strings.ToLower(strings.TrimSpace(c.Reports.FailSeverity))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "warning" {
		c.Logging.Level = "warn"
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

// Validate checks every value and returns all problems joined.
func (c *Config) Validate() error {
	var errs []error
	bad := func(field string, value any, reason string) {
		errs = append(errs, &Error{Field: field, Value: value, Reason: reason})
	}

	s := c.Scanner
	if s.MaxConcurrentRequests < 1 || s.MaxConcurrentRequests > defaults.ConcurrencyMax {
		bad("scanner.max_concurrent_requests", s.MaxConcurrentRequests, fmt.Sprintf("must be between 1 and %d", defaults.ConcurrencyMax))
	}
	if s.RequestTimeout <= 0 || s.RequestTimeout.Std() > MaxRequestTimeout {
		bad("scanner.request_timeout", s.RequestTimeout, fmt.Sprintf("must be positive and at most %s", MaxRequestTimeout))
	}
	if s.RetryAttempts < 0 || s.RetryAttempts > defaults.RetryMax {
		bad("scanner.retry_attempts", s.RetryAttempts, fmt.Sprintf("must be between 0 and %d", defaults.RetryMax))
	}
	if s.RetryBackoffMax <= 0 {
		bad("scanner.retry_backoff_max", s.RetryBackoffMax, "must be positive")
	}
	if s.DelayBetweenRequests < 0 || s.DelayBetweenRequests.Std() > MaxDelay {
		bad("scanner.delay_between_requests", s.DelayBetweenRequests, fmt.Sprintf("must be between 0 and %s", MaxDelay))
	}
	if s.PluginTimeout <= 0 {
		bad("scanner.plugin_timeout", s.PluginTimeout, "must be positive")
	}
	if s.HardDeadline < 0 {
		bad("scanner.hard_deadline", s.HardDeadline, "must not be negative")
	}
	if strings.TrimSpace(s.UserAgent) == "" {
		bad("scanner.user_agent", nil, "must not be empty")
	}
	if s.Proxy != "" {
		if _, err := httpclient.ParseProxyURL(s.Proxy); err != nil {
			bad("scanner.proxy", s.Proxy, err.Error())
		}
	}

	r := c.Reports
	if !slices.Contains(Formats, r.DefaultFormat) {
		bad("reports.default_format", r.DefaultFormat, "must be one of "+strings.Join(Formats, ", "))
	}
	if r.MaxResponseSize <= 0 {
		bad("reports.max_response_size", r.MaxResponseSize, "must be positive")
	}
	if _, ok := finding.ParseSeverity(r.FailSeverity); !ok {
		bad("reports.fail_severity", r.FailSeverity, "unknown severity")
	}

	if !slices.Contains(LogLevels, c.Logging.Level) {
		bad("logging.level", c.Logging.Level, "must be one of "+strings.Join(LogLevels, ", "))
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		bad("logging.format", c.Logging.Format, "must be text or json")
	}

	if p := c.Telemetry.MetricsPort; p < 0 || p > 65535 {
		bad("telemetry.metrics_port", p, "must be a TCP port")
	}
	if u := c.Telemetry.WebhookURL; u != "" {
		if parsed, err := url.Parse(u); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			bad("telemetry.webhook_url", u, "must be an http or https URL")
		}
	}
	if s := c.Telemetry.WebhookMinSeverity; s != "" {
		if _, ok := finding.ParseSeverity(s); !ok {
			bad("telemetry.webhook_min_severity", s, "unknown severity")
		}
	}

	return errors.Join(errs...)
}

// FailSeverity returns the parsed exit-code threshold.
func (c *Config) FailSeverity() finding.Severity {
	s, ok := finding.ParseSeverity(c.Reports.FailSeverity)
	if !ok {
		return finding.Medium
	}
	return s
}

// HTTPClientConfig returns the HTTP client settings.
func (c *Config) HTTPClientConfig() httpclient.Config {
	hc := httpclient.DefaultConfig()
	hc.Timeout = c.Scanner.RequestTimeout.Std()
	hc.Retries = c.Scanner.RetryAttempts
	hc.RetryMaxDelay = c.Scanner.RetryBackoffMax.Std()
	hc.VerifyTLS = c.Scanner.VerifySSL
	hc.UserAgent = c.Scanner.UserAgent
	hc.FollowRedirects = c.Scanner.FollowRedirects
	hc.MaxResponseSize = c.Reports.MaxResponseSize
	hc.Proxy = c.Scanner.Proxy
	return hc
}

// SchedulerConfig returns the scheduling policy.
func (c *Config) SchedulerConfig() scheduler.Config {
	return scheduler.Config{
		MaxConcurrent:     c.Scanner.MaxConcurrentRequests,
		PluginTimeout:     c.Scanner.PluginTimeout.Std(),
		InterRequestDelay: c.Scanner.DelayBetweenRequests.Std(),
		HardDeadline:      c.Scanner.HardDeadline.Std(),
		AllowRestricted:   c.Scanner.AllowPrivateTargets,
	}
}

// ReportOptions returns the report rendering options.
func (c *Config) ReportOptions() report.Options {
	return report.Options{
		IncludeRequestResponse: c.Reports.IncludeRequestResponse,
		IncludePayloads:        c.Reports.IncludePayloads,
		MaxResponseSize:        c.Reports.MaxResponseSize,
	}
}

// Selection returns the plugin selection described by the plugins section.
func (c *Config) Selection() plugin.Selection {
	return plugin.Selection{
		Enabled:  c.Plugins.EnabledPlugins,
		Disabled: c.Plugins.DisabledPlugins,
	}
}

// WriteSample writes the documented default configuration to path, creating
// parent directories. It refuses to overwrite an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config: %s already exists", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, []byte(sample), 0o644)
}
