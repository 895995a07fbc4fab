package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pyrate-scanner/pyrate/pkg/defaults"
	"github.com/pyrate-scanner/pyrate/pkg/output/exitcode"
	"github.com/pyrate-scanner/pyrate/pkg/ui"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches a subcommand and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	ui.SetOutput(stderr)
	if len(args) == 0 {
		printUsage(stderr)
		return int(exitcode.Configuration)
	}

	switch args[0] {
	case "scan":
		return runScan(args[1:], stdout, stderr)
	case "plugins", "plugin", "list":
		return runPlugins(args[1:], stdout, stderr)
	case "init-config", "init":
		return runInitConfig(args[1:], stderr)
	case "-v", "--version", "version":
		fmt.Fprintf(stdout, "%s %s\n", defaults.ToolName, defaults.Version)
		return int(exitcode.Success)
	case "-h", "--help", "help":
		printUsage(stdout)
		return int(exitcode.Success)
	default:
		ui.PrintError(fmt.Sprintf("unknown command %q", args[0]))
		fmt.Fprintln(stderr)
		printUsage(stderr)
		return int(exitcode.Configuration)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, ui.SectionStyle.Render("USAGE"))
	fmt.Fprintf(w, "  %s scan [flags] URL [URL...]\n", defaults.ToolName)
	fmt.Fprintf(w, "  %s plugins [--category c] [--risk r] [--json]\n", defaults.ToolName)
	fmt.Fprintf(w, "  %s init-config [path]\n", defaults.ToolName)
	fmt.Fprintf(w, "  %s version\n", defaults.ToolName)
	fmt.Fprintln(w)

	fmt.Fprintln(w, ui.SectionStyle.Render("COMMANDS"))
	fmt.Fprintf(w, "  %s  Run plugins against one or more targets and write a report\n", ui.ValueStyle.Render("scan       "))
	fmt.Fprintf(w, "  %s  List registered and discovered plugins\n", ui.ValueStyle.Render("plugins    "))
	fmt.Fprintf(w, "  %s  Write a documented default configuration file\n", ui.ValueStyle.Render("init-config"))
	fmt.Fprintf(w, "  %s  Print the version\n", ui.ValueStyle.Render("version    "))
	fmt.Fprintln(w)

	fmt.Fprintln(w, ui.SectionStyle.Render("SCAN FLAGS"))
	fmt.Fprintln(w, "  -c, --config FILE        Configuration file (default: ./pyrate.yaml, ~/.pyrate/config.yaml)")
	fmt.Fprintln(w, "  -o, --output FILE        Report path (default: <output_directory>/pyrate-<time>.<ext>)")
	fmt.Fprintln(w, "  -f, --format FORMAT      Report format: json, html, txt, xml, pdf")
	fmt.Fprintln(w, "  -p, --plugins LIST       Comma-separated plugin names")
	fmt.Fprintln(w, "  --category LIST          Comma-separated plugin categories")
	fmt.Fprintln(w, "  --severity LEVEL         Exit 1 when findings reach LEVEL (default: medium)")
	fmt.Fprintln(w, "  --concurrency N          Plugins run in parallel")
	fmt.Fprintln(w, "  --timeout DUR            Per-request timeout")
	fmt.Fprintln(w, "  --plugin-timeout DUR     Per-plugin time limit")
	fmt.Fprintln(w, "  --delay DUR              Minimum spacing between requests of one slot")
	fmt.Fprintln(w, "  --deadline DUR           Hard limit for the whole scan")
	fmt.Fprintln(w, "  --allow-private          Permit loopback and private targets")
	fmt.Fprintln(w, "  --insecure               Skip TLS certificate verification")
	fmt.Fprintln(w, "  --metrics-port N         Serve Prometheus metrics on N")
	fmt.Fprintln(w, "  --otlp-endpoint ADDR     Export traces over OTLP/gRPC")
	fmt.Fprintln(w, "  --webhook URL            POST lifecycle events as JSON")
	fmt.Fprintln(w, "  --events FILE            Stream lifecycle events as JSON lines")
	fmt.Fprintln(w, "  --findings-only          Limit --webhook and --events to findings")
	fmt.Fprintln(w, "  -v, --verbose            Debug logging")
	fmt.Fprintln(w, "  -q, --quiet              Only errors and the report path")
	fmt.Fprintln(w, "  --no-color               Disable colored output")
	fmt.Fprintln(w)

	fmt.Fprintln(w, ui.SectionStyle.Render("EXIT STATUS"))
	for _, c := range []exitcode.Code{exitcode.Success, exitcode.Findings, exitcode.ScanFailure, exitcode.Configuration} {
		fmt.Fprintf(w, "  %d  %s\n", c, exitcode.CodeDescription(c))
	}
}
