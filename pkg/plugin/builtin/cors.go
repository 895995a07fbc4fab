package builtin

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/pyrate-scanner/pyrate/pkg/finding"
	"github.com/pyrate-scanner/pyrate/pkg/httpclient"
	"github.com/pyrate-scanner/pyrate/pkg/plugin"
	"github.com/pyrate-scanner/pyrate/pkg/target"
)

const attackerDomain = "pyrate-evil.example"

type corsProbe struct {
	origin string
	kind   string
}

// CORS reports Access-Control-Allow-Origin policies that trust arbitrary or
// attacker-controllable origins.
type CORS struct {
	meta plugin.Metadata
}

// NewCORS creates the cors plugin.
func NewCORS() *CORS {
	return &CORS{meta: plugin.Metadata{
		Name:        "cors",
		Description: "Detects permissive cross-origin resource sharing policies",
		Category:    "headers",
		Risk:        finding.Medium,
		Version:     version,
	}}
}

func (p *CORS) Metadata() plugin.Metadata { return p.meta }

func corsProbes(t *target.Target) []corsProbe {
	domain := t.Domain()
	probes := []corsProbe{
		{origin: "https://" + attackerDomain, kind: "arbitrary origin reflected"},
		{origin: "null", kind: "null origin trusted"},
		{origin: "https://" + domain + "." + attackerDomain, kind: "prefix match bypass"},
		{origin: "https://" + strings.ReplaceAll(domain, ".", "") + attackerDomain, kind: "suffix match bypass"},
	}
	if net.ParseIP(t.Host) == nil {
		probes = append(probes, corsProbe{origin: t.Scheme + "://pyrate-probe." + domain, kind: "any subdomain trusted"})
	}
	if t.IsHTTPS() {
		probes = append(probes, corsProbe{origin: "http://" + t.Host, kind: "insecure origin trusted"})
	}
	return probes
}

func (p *CORS) Run(ctx context.Context, t *target.Target, r plugin.Requester) ([]finding.Vulnerability, error) {
	var out []finding.Vulnerability
	wildcardReported := false

	for i, probe := range corsProbes(t) {
		resp, err := fetch(ctx, r, &httpclient.Request{
			URL:     t.URL,
			Headers: http.Header{"Origin": {probe.origin}},
		})
		if err != nil {
			// without the first response there is nothing to analyze
			if i == 0 || ctx.Err() != nil {
				return out, err
			}
			continue
		}

		allow := strings.TrimSpace(resp.Header.Get("Access-Control-Allow-Origin"))
		creds := strings.EqualFold(strings.TrimSpace(resp.Header.Get("Access-Control-Allow-Credentials")), "true")

		if allow == "*" {
			if creds && !wildcardReported {
				wildcardReported = true
				f := newFinding(p.meta, "Wildcard CORS origin with credentials", finding.Medium)
				f.Description = "Access-Control-Allow-Origin is * while Access-Control-Allow-Credentials is true."
				f.Location = resp.URL
				f.Evidence = corsEvidence(probe.origin, allow, creds)
				f.Recommendation = "Never combine a wildcard origin with credentials; list trusted origins explicitly."
				f.Confidence = 1
				out = append(out, f)
			}
			continue
		}
		if allow != probe.origin {
			continue
		}

		sev := classifyCORS(t, probe.origin, creds)
		f := newFinding(p.meta, "CORS misconfiguration: "+probe.kind, sev)
		f.Description = fmt.Sprintf("The server trusts origin %q for cross-origin reads.", probe.origin)
		f.Location = resp.URL
		f.Payload = probe.origin
		f.Evidence = corsEvidence(probe.origin, allow, creds)
		f.Recommendation = "Validate the Origin header against an exact allow-list of trusted origins."
		f.Confidence = 0.9
		out = append(out, f)
	}
	return out, nil
}

// classifyCORS rates a trusted origin. Cross-site origins with credentials
// let any site read authenticated responses; same-site origins need a
// compromised subdomain first.
func classifyCORS(t *target.Target, origin string, creds bool) finding.Severity {
	sameSite := false
	if u, err := url.Parse(origin); err == nil && u.Hostname() != "" {
		sameSite = target.RegistrableDomain(u.Hostname()) == t.Domain()
	}
	switch {
	case sameSite && creds:
		return finding.Medium
	case sameSite:
		return finding.Low
	case creds:
		return finding.High
	default:
		return finding.Medium
	}
}

func corsEvidence(origin, allow string, creds bool) string {
	return fmt.Sprintf("Origin: %s -> Access-Control-Allow-Origin: %s, Access-Control-Allow-Credentials: %t", origin, allow, creds)
}
