package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/pyrate-scanner/pyrate/pkg/finding"
	"github.com/pyrate-scanner/pyrate/pkg/httpclient"
	"github.com/pyrate-scanner/pyrate/pkg/plugin"
	"github.com/pyrate-scanner/pyrate/pkg/target"
)

type headerCheck struct {
	name        string
	severity    finding.Severity
	httpsOnly   bool
	description string

	// weak reports a present but ineffective value; nil means any value
	// is acceptable.
	weak func(value string) string
}

var securityHeaderChecks = []headerCheck{
	{
		name:        "X-Frame-Options",
		severity:    finding.Medium,
		description: "Missing X-Frame-Options allows the page to be framed for clickjacking.",
		weak: func(v string) string {
			v = strings.ToUpper(strings.TrimSpace(v))
			if v != "DENY" && v != "SAMEORIGIN" {
				return "value should be DENY or SAMEORIGIN"
			}
			return ""
		},
	},
	{
		name:        "X-Content-Type-Options",
		severity:    finding.Low,
		description: "Missing X-Content-Type-Options allows MIME sniffing.",
		weak: func(v string) string {
			if !strings.EqualFold(strings.TrimSpace(v), "nosniff") {
				return "value should be nosniff"
			}
			return ""
		},
	},
	{
		name:        "Strict-Transport-Security",
		severity:    finding.Medium,
		httpsOnly:   true,
		description: "Missing HSTS allows protocol downgrade and cookie hijacking.",
		weak: func(v string) string {
			if !strings.Contains(strings.ToLower(v), "max-age=") {
				return "max-age directive is missing"
			}
			if strings.Contains(strings.ReplaceAll(strings.ToLower(v), " ", ""), "max-age=0") {
				return "max-age=0 disables HSTS"
			}
			return ""
		},
	},
	{
		name:        "Content-Security-Policy",
		severity:    finding.Medium,
		description: "Missing Content-Security-Policy increases the impact of XSS.",
		weak: func(v string) string {
			l := strings.ToLower(v)
			if strings.Contains(l, "'unsafe-inline'") && strings.Contains(l, "script-src") {
				return "script-src allows 'unsafe-inline'"
			}
			return ""
		},
	},
	{
		name:        "Referrer-Policy",
		severity:    finding.Low,
		description: "Missing Referrer-Policy may leak URLs to third parties.",
		weak: func(v string) string {
			if strings.EqualFold(strings.TrimSpace(v), "unsafe-url") {
				return "unsafe-url sends the full URL cross-origin"
			}
			return ""
		},
	},
}

// SecurityHeaders reports missing or weak HTTP security headers.
type SecurityHeaders struct {
	meta plugin.Metadata
}

// NewSecurityHeaders creates the security_headers plugin.
func NewSecurityHeaders() *SecurityHeaders {
	return &SecurityHeaders{meta: plugin.Metadata{
		Name:        "security_headers",
		Description: "Checks for missing or misconfigured HTTP security headers",
		Category:    "headers",
		Risk:        finding.Medium,
		Version:     version,
	}}
}

func (p *SecurityHeaders) Metadata() plugin.Metadata { return p.meta }

func (p *SecurityHeaders) Run(ctx context.Context, t *target.Target, r plugin.Requester) ([]finding.Vulnerability, error) {
	resp, err := fetch(ctx, r, &httpclient.Request{URL: t.URL})
	if err != nil {
		return nil, err
	}

	var out []finding.Vulnerability
	for _, hc := range securityHeaderChecks {
		if hc.httpsOnly && !t.IsHTTPS() {
			continue
		}
		value := resp.Header.Get(hc.name)
		if value == "" {
			f := newFinding(p.meta, fmt.Sprintf("Missing %s header", hc.name), hc.severity)
			f.Description = hc.description
			f.Location = resp.URL
			f.Evidence = fmt.Sprintf("%s not present in response", hc.name)
			f.Recommendation = fmt.Sprintf("Send the %s header on every response.", hc.name)
			f.Confidence = 1
			out = append(out, f)
			continue
		}
		if hc.weak == nil {
			continue
		}
		if reason := hc.weak(value); reason != "" {
			f := newFinding(p.meta, fmt.Sprintf("Weak %s header", hc.name), finding.Low)
			f.Description = reason
			f.Location = resp.URL
			f.Evidence = hc.name + ": " + value
			f.Recommendation = fmt.Sprintf("Tighten the %s header value.", hc.name)
			f.Confidence = 0.9
			out = append(out, f)
		}
	}
	return out, nil
}
