package builtin

import (
	"context"
	"fmt"
	"regexp"

	"github.com/pyrate-scanner/pyrate/pkg/finding"
	"github.com/pyrate-scanner/pyrate/pkg/httpclient"
	"github.com/pyrate-scanner/pyrate/pkg/plugin"
	"github.com/pyrate-scanner/pyrate/pkg/target"
)

// notFoundProbe is requested to provoke the server's error page.
const notFoundProbe = "/pyrate-probe-404.php"

var versionPattern = regexp.MustCompile(`\d+\.\d+`)

// versionHeaders leak product versions when they contain a version number.
var versionHeaders = []string{"Server", "X-Powered-By", "X-AspNet-Version", "X-AspNetMvc-Version", "X-Generator"}

type bodySignature struct {
	re       *regexp.Regexp
	title    string
	severity finding.Severity
}

var bodySignatures = []bodySignature{
	{regexp.MustCompile(`Traceback \(most recent call last\)`), "Python stack trace", finding.Medium},
	{regexp.MustCompile(`(?m)^\s*at [\w$.]+\([\w]+\.java:\d+\)`), "Java stack trace", finding.Medium},
	{regexp.MustCompile(`Exception in thread "`), "Java exception", finding.Medium},
	{regexp.MustCompile(`(?i)<b>(Fatal error|Warning|Parse error)</b>:.*? in <b>[^<]+</b> on line`), "PHP error message", finding.Medium},
	{regexp.MustCompile(`Server Error in '[^']*' Application`), "ASP.NET error page", finding.Medium},
	{regexp.MustCompile(`(?i)You have an error in your SQL syntax`), "SQL error message", finding.Medium},
	{regexp.MustCompile(`ORA-\d{5}`), "Oracle error message", finding.Medium},
	{regexp.MustCompile(`(?i)<title>Index of /`), "Directory listing", finding.Low},
	{regexp.MustCompile(`(?i)DEBUG = True|Django Debug|Whoops! There was an error`), "Debug mode enabled", finding.High},
}

// InfoDisclosure reports version banners and verbose error output.
type InfoDisclosure struct {
	meta plugin.Metadata
}

// NewInfoDisclosure creates the info_disclosure plugin.
func NewInfoDisclosure() *InfoDisclosure {
	return &InfoDisclosure{meta: plugin.Metadata{
		Name:        "info_disclosure",
		Description: "Detects version banners, stack traces and debug output",
		Category:    "disclosure",
		Risk:        finding.Low,
		Version:     version,
	}}
}

func (p *InfoDisclosure) Metadata() plugin.Metadata { return p.meta }

func (p *InfoDisclosure) Run(ctx context.Context, t *target.Target, r plugin.Requester) ([]finding.Vulnerability, error) {
	base, err := fetch(ctx, r, &httpclient.Request{URL: t.URL})
	if err != nil {
		return nil, err
	}

	out := p.headerFindings(base)
	out = append(out, p.bodyFindings(base)...)

	errPage, err := fetch(ctx, r, &httpclient.Request{URL: t.Resolve(notFoundProbe)})
	if err != nil {
		// the main page was already checked
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return out, nil
	}
	seen := make(map[string]bool, len(out))
	for _, f := range out {
		seen[f.Title] = true
	}
	for _, f := range p.bodyFindings(errPage) {
		if !seen[f.Title] {
			out = append(out, f)
		}
	}
	return out, nil
}

func (p *InfoDisclosure) headerFindings(resp *httpclient.Response) []finding.Vulnerability {
	var out []finding.Vulnerability
	for _, h := range versionHeaders {
		v := resp.Header.Get(h)
		if v == "" || !versionPattern.MatchString(v) {
			continue
		}
		f := newFinding(p.meta, fmt.Sprintf("Version disclosed in %s header", h), finding.Low)
		f.Description = "The response reveals software version information that helps attackers find known vulnerabilities."
		f.Location = resp.URL
		f.Evidence = h + ": " + v
		f.Recommendation = fmt.Sprintf("Remove the version from the %s header.", h)
		f.Confidence = 1
		out = append(out, f)
	}
	return out
}

func (p *InfoDisclosure) bodyFindings(resp *httpclient.Response) []finding.Vulnerability {
	body := resp.BodyString()
	var out []finding.Vulnerability
	for _, sig := range bodySignatures {
		loc := sig.re.FindStringIndex(body)
		if loc == nil {
			continue
		}
		f := newFinding(p.meta, sig.title, sig.severity)
		f.Description = "The response contains internal error or debug output."
		f.Location = resp.URL
		f.Evidence = excerpt(body, loc[0])
		f.Recommendation = "Disable verbose errors and debug output in production."
		f.Confidence = 0.8
		out = append(out, f)
	}
	return out
}
