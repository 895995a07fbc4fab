package builtin

import (
	"context"
	"fmt"
	"maps"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/pyrate-scanner/pyrate/pkg/finding"
	"github.com/pyrate-scanner/pyrate/pkg/httpclient"
	"github.com/pyrate-scanner/pyrate/pkg/plugin"
	"github.com/pyrate-scanner/pyrate/pkg/target"
)

var traversalPayloads = []string{
	"../../../../../../etc/passwd",
	"..%2f..%2f..%2f..%2f..%2f..%2fetc%2fpasswd",
	"....//....//....//....//etc/passwd",
	"..\\..\\..\\..\\..\\windows\\win.ini",
	"/etc/passwd",
}

type fileSignature struct {
	re   *regexp.Regexp
	file string
}

var fileSignatures = []fileSignature{
	{regexp.MustCompile(`root:[^:\n]*:0:0:`), "/etc/passwd"},
	{regexp.MustCompile(`(?i)\[(fonts|extensions|mci extensions)\]`), "win.ini"},
	{regexp.MustCompile(`(?i)\[boot loader\]`), "boot.ini"},
}

// DirectoryTraversal injects path traversal payloads into query parameters
// and the last path segment and looks for system file contents.
type DirectoryTraversal struct {
	meta plugin.Metadata
}

// NewDirectoryTraversal creates the directory_traversal plugin.
func NewDirectoryTraversal() *DirectoryTraversal {
	return &DirectoryTraversal{meta: plugin.Metadata{
		Name:        "directory_traversal",
		Description: "Tests query parameters and paths for directory traversal",
		Category:    "injection",
		Risk:        finding.High,
		Version:     version,
	}}
}

func (p *DirectoryTraversal) Metadata() plugin.Metadata { return p.meta }

type traversalProbe struct {
	url     string
	param   string
	payload string
}

func (p *DirectoryTraversal) Run(ctx context.Context, t *target.Target, r plugin.Requester) ([]finding.Vulnerability, error) {
	// Signatures already present in the unmodified page are not evidence.
	baseline, err := fetch(ctx, r, &httpclient.Request{URL: t.URL})
	if err != nil {
		return nil, err
	}
	preexisting := matchFileSignature(baseline.BodyString())

	var out []finding.Vulnerability
	reported := make(map[string]bool)
	for _, probe := range traversalProbes(t) {
		if reported[probe.param] {
			continue
		}
		resp, err := fetch(ctx, r, &httpclient.Request{URL: probe.url})
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			continue
		}
		body := resp.BodyString()
		sig, idx := matchFileSignatureIndex(body)
		if sig == nil || sig.file == preexisting {
			continue
		}

		reported[probe.param] = true
		f := newFinding(p.meta, fmt.Sprintf("Directory traversal via %s", probe.param), finding.High)
		f.Description = fmt.Sprintf("Injecting a traversal sequence returned the contents of %s.", sig.file)
		f.Location = probe.url
		f.Payload = probe.payload
		f.Evidence = excerpt(body, idx)
		f.Recommendation = "Canonicalize user-supplied paths and restrict file access to an allow-listed base directory."
		f.Confidence = 0.95
		out = append(out, f)
	}
	return out, nil
}

func traversalProbes(t *target.Target) []traversalProbe {
	var probes []traversalProbe

	if q, err := url.ParseQuery(t.Query()); err == nil && len(q) > 0 {
		base := t.BaseURL() + t.Path
		// sorted so probe order, and therefore findings order, is stable
		for _, name := range slices.Sorted(maps.Keys(q)) {
			for _, payload := range traversalPayloads {
				mod := maps.Clone(q)
				mod.Set(name, payload)
				raw := mod.Encode()
				// keep pre-encoded payloads as sent
				if strings.Contains(payload, "%2f") {
					raw = strings.Replace(raw, url.QueryEscape(payload), payload, 1)
				}
				probes = append(probes, traversalProbe{
					url:     base + "?" + raw,
					param:   "parameter " + name,
					payload: payload,
				})
			}
		}
	}

	dir := t.Path[:strings.LastIndex(t.Path, "/")+1]
	for _, payload := range traversalPayloads {
		probes = append(probes, traversalProbe{
			url:     t.BaseURL() + dir + payload,
			param:   "path",
			payload: payload,
		})
	}
	return probes
}

func matchFileSignature(body string) string {
	sig, _ := matchFileSignatureIndex(body)
	if sig == nil {
		return ""
	}
	return sig.file
}

func matchFileSignatureIndex(body string) (*fileSignature, int) {
	for i := range fileSignatures {
		if loc := fileSignatures[i].re.FindStringIndex(body); loc != nil {
			return &fileSignatures[i], loc[0]
		}
	}
	return nil, -1
}
