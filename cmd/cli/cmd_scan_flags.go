package main

import (
	"flag"
	"io"
	"strings"
	"time"

	"github.com/pyrate-scanner/pyrate/pkg/config"
	"github.com/pyrate-scanner/pyrate/pkg/report"
)

// listFlag collects comma-separated values; the flag may be repeated.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

// scanFlags bundles every flag value for the scan command.
type scanFlags struct {
	ConfigPath string
	Output     string
	Format     string
	Plugins    listFlag
	Categories listFlag
	Severity   string

	Concurrency   int
	Timeout       time.Duration
	PluginTimeout time.Duration
	Delay         time.Duration
	Deadline      time.Duration
	AllowPrivate  bool
	Insecure      bool

	MetricsPort  int
	OTLPEndpoint string
	Webhook      string
	Events       string
	FindingsOnly bool

	Verbose bool
	Quiet   bool
	NoColor bool

	// set holds the names of flags given on the command line.
	set map[string]bool
}

// registerScanFlags creates the "scan" FlagSet and binds every flag.
// Short and long spellings share one destination.
func registerScanFlags(stderr io.Writer) (*flag.FlagSet, *scanFlags) {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &scanFlags{}

	fs.StringVar(&f.ConfigPath, "c", "", "Configuration file")
	fs.StringVar(&f.ConfigPath, "config", "", "Configuration file")
	fs.StringVar(&f.Output, "o", "", "Report output path")
	fs.StringVar(&f.Output, "output", "", "Report output path")
	fs.StringVar(&f.Format, "f", "", "Report format: json, html, txt, xml, pdf")
	fs.StringVar(&f.Format, "format", "", "Report format")
	fs.Var(&f.Plugins, "p", "Plugin names, comma-separated")
	fs.Var(&f.Plugins, "plugins", "Plugin names, comma-separated")
	fs.Var(&f.Categories, "category", "Plugin categories, comma-separated")
	fs.StringVar(&f.Severity, "severity", "", "Exit-code severity threshold")

	fs.IntVar(&f.Concurrency, "concurrency", 0, "Maximum plugins running at once")
	fs.DurationVar(&f.Timeout, "timeout", 0, "Per-request timeout")
	fs.DurationVar(&f.PluginTimeout, "plugin-timeout", 0, "Per-plugin time limit")
	fs.DurationVar(&f.Delay, "delay", 0, "Minimum delay between requests of one slot")
	fs.DurationVar(&f.Deadline, "deadline", 0, "Hard deadline for each target")
	fs.BoolVar(&f.AllowPrivate, "allow-private", false, "Allow loopback and private targets")
	fs.BoolVar(&f.Insecure, "insecure", false, "Skip TLS certificate verification")

	fs.IntVar(&f.MetricsPort, "metrics-port", 0, "Serve Prometheus metrics on this port")
	fs.StringVar(&f.OTLPEndpoint, "otlp-endpoint", "", "OTLP/gRPC trace endpoint")
	fs.StringVar(&f.Webhook, "webhook", "", "POST lifecycle events to this URL")
	fs.StringVar(&f.Events, "events", "", "Write lifecycle events as JSON lines to this file")
	fs.BoolVar(&f.FindingsOnly, "findings-only", false, "Send only finding and scan_complete events to --webhook and --events")

	fs.BoolVar(&f.Verbose, "v", false, "Verbose output")
	fs.BoolVar(&f.Verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&f.Quiet, "q", false, "Quiet output")
	fs.BoolVar(&f.Quiet, "quiet", false, "Quiet output")
	fs.BoolVar(&f.NoColor, "no-color", false, "Disable colored output")

	fs.Usage = func() { printUsage(stderr) }
	return fs, f
}

// parseInterspersed parses args allowing flags after positional arguments,
// so "scan https://a.example -p cors" works. It returns the positionals.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

// parse fills f from args and returns the target URLs.
func (f *scanFlags) parse(fs *flag.FlagSet, args []string) ([]string, error) {
	targets, err := parseInterspersed(fs, args)
	if err != nil {
		return nil, err
	}
	f.set = make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return targets, nil
}

func (f *scanFlags) isSet(names ...string) bool {
	for _, n := range names {
		if f.set[n] {
			return true
		}
	}
	return false
}

// apply overlays command-line values on cfg. Only flags given explicitly
// override the file, so a zero flag value never clobbers a configured one.
func (f *scanFlags) apply(cfg *config.Config) {
	if f.isSet("f", "format") {
		cfg.Reports.DefaultFormat = f.Format
		if format, err := report.ParseFormat(f.Format); err == nil {
			cfg.Reports.DefaultFormat = string(format)
		}
	}
	if f.isSet("severity") {
		cfg.Reports.FailSeverity = f.Severity
	}
	if f.isSet("concurrency") {
		cfg.Scanner.MaxConcurrentRequests = f.Concurrency
	}
	if f.isSet("timeout") {
		cfg.Scanner.RequestTimeout = config.Duration(f.Timeout)
	}
	if f.isSet("plugin-timeout") {
		cfg.Scanner.PluginTimeout = config.Duration(f.PluginTimeout)
	}
	if f.isSet("delay") {
		cfg.Scanner.DelayBetweenRequests = config.Duration(f.Delay)
	}
	if f.isSet("deadline") {
		cfg.Scanner.HardDeadline = config.Duration(f.Deadline)
	}
	if f.AllowPrivate {
		cfg.Scanner.AllowPrivateTargets = true
	}
	if f.Insecure {
		cfg.Scanner.VerifySSL = false
	}
	if f.isSet("metrics-port") {
		cfg.Telemetry.MetricsPort = f.MetricsPort
	}
	if f.isSet("otlp-endpoint") {
		cfg.Telemetry.OTLPEndpoint = f.OTLPEndpoint
	}
	if f.isSet("webhook") {
		cfg.Telemetry.WebhookURL = f.Webhook
	}
	if f.FindingsOnly {
		cfg.Telemetry.FindingsOnly = true
	}
}
