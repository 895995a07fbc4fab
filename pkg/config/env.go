package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pyrate-scanner/pyrate/pkg/defaults"
)

// envVar binds one environment variable to a config field. Names follow
// PYRATE_<SECTION>__<KEY>, mirroring the YAML layout.
type envVar struct {
	field string
	set   func(c *Config, v string) error
}

var envVars = []envVar{
	{"scanner.max_concurrent_requests", func(c *Config, v string) error { return setInt(&c.Scanner.MaxConcurrentRequests, v) }},
	{"scanner.request_timeout", func(c *Config, v string) error { return setDuration(&c.Scanner.RequestTimeout, v) }},
	{"scanner.retry_attempts", func(c *Config, v string) error { return setInt(&c.Scanner.RetryAttempts, v) }},
	{"scanner.retry_backoff_max", func(c *Config, v string) error { return setDuration(&c.Scanner.RetryBackoffMax, v) }},
	{"scanner.delay_between_requests", func(c *Config, v string) error { return setDuration(&c.Scanner.DelayBetweenRequests, v) }},
	{"scanner.plugin_timeout", func(c *Config, v string) error { return setDuration(&c.Scanner.PluginTimeout, v) }},
	{"scanner.hard_deadline", func(c *Config, v string) error { return setDuration(&c.Scanner.HardDeadline, v) }},
	{"scanner.user_agent", func(c *Config, v string) error { c.Scanner.UserAgent = v; return nil }},
	{"scanner.follow_redirects", func(c *Config, v string) error { return setBool(&c.Scanner.FollowRedirects, v) }},
	{"scanner.verify_ssl", func(c *Config, v string) error { return setBool(&c.Scanner.VerifySSL, v) }},
	{"scanner.allow_private_targets", func(c *Config, v string) error { return setBool(&c.Scanner.AllowPrivateTargets, v) }},
	{"scanner.proxy", func(c *Config, v string) error { c.Scanner.Proxy = v; return nil }},
	{"plugins.enabled_plugins", func(c *Config, v string) error { c.Plugins.EnabledPlugins = splitList(v); return nil }},
	{"plugins.disabled_plugins", func(c *Config, v string) error { c.Plugins.DisabledPlugins = splitList(v); return nil }},
	{"plugins.plugin_directories", func(c *Config, v string) error { c.Plugins.PluginDirectories = splitList(v); return nil }},
	{"reports.default_format", func(c *Config, v string) error { c.Reports.DefaultFormat = v; return nil }},
	{"reports.output_directory", func(c *Config, v string) error { c.Reports.OutputDirectory = v; return nil }},
	{"reports.fail_severity", func(c *Config, v string) error { c.Reports.FailSeverity = v; return nil }},
	{"logging.level", func(c *Config, v string) error { c.Logging.Level = v; return nil }},
	{"logging.format", func(c *Config, v string) error { c.Logging.Format = v; return nil }},
	{"logging.file_path", func(c *Config, v string) error { c.Logging.FilePath = v; return nil }},
	{"telemetry.metrics_port", func(c *Config, v string) error { return setInt(&c.Telemetry.MetricsPort, v) }},
	{"telemetry.otlp_endpoint", func(c *Config, v string) error { c.Telemetry.OTLPEndpoint = v; return nil }},
	{"telemetry.otlp_insecure", func(c *Config, v string) error { return setBool(&c.Telemetry.OTLPInsecure, v) }},
	{"telemetry.webhook_url", func(c *Config, v string) error { c.Telemetry.WebhookURL = v; return nil }},
	{"telemetry.webhook_min_severity", func(c *Config, v string) error { c.Telemetry.WebhookMinSeverity = v; return nil }},
	{"telemetry.findings_only", func(c *Config, v string) error { return setBool(&c.Telemetry.FindingsOnly, v) }},
}

// EnvName returns the environment variable for a dotted field path.
func EnvName(field string) string {
	return defaults.EnvPrefix + strings.ToUpper(strings.ReplaceAll(field, ".", "__"))
}

// applyEnv overrides fields from the environment. PYRATE_DEBUG=true is a
// shorthand for debug logging.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, ev := range envVars {
		v, ok := lookup(EnvName(ev.field))
		if !ok {
			continue
		}
		if err := ev.set(c, strings.TrimSpace(v)); err != nil {
			return &Error{Field: ev.field, Value: v, Reason: fmt.Sprintf("from %s: %v", EnvName(ev.field), err)}
		}
	}
	if v, ok := lookup(defaults.EnvPrefix + "DEBUG"); ok {
		if on, err := strconv.ParseBool(v); err == nil && on {
			c.Logging.Level = "debug"
		}
	}
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("not an integer")
	}
	*dst = n
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("not a boolean")
	}
	*dst = b
	return nil
}

func setDuration(dst *Duration, v string) error {
	d, err := ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

// splitList splits a comma-separated value. An empty value yields an empty,
// non-nil list.
func splitList(v string) []string {
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
