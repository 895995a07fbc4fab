// Package builtin provides the checks compiled into the scanner. They are
// registered before directory discovery so their names take precedence
// over script plugins with the same name.
package builtin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/pyrate-scanner/pyrate/pkg/defaults"
	"github.com/pyrate-scanner/pyrate/pkg/finding"
	"github.com/pyrate-scanner/pyrate/pkg/httpclient"
	"github.com/pyrate-scanner/pyrate/pkg/plugin"
)

const version = "1.0.0"

// All returns a fresh instance of every built-in plugin in registration
// order.
func All() []plugin.Plugin {
	return []plugin.Plugin{
		NewSecurityHeaders(),
		NewCSRF(),
		NewInfoDisclosure(),
		NewDirectoryTraversal(),
		NewCORS(),
	}
}

// RegisterAll registers every built-in plugin with reg.
func RegisterAll(reg *plugin.Registry) {
	for _, p := range All() {
		reg.MustRegister(p)
	}
}

// fetch issues a request and returns the response even for error status
// codes, which several checks still need to inspect.
func fetch(ctx context.Context, r plugin.Requester, req *httpclient.Request) (*httpclient.Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	resp, err := r.Do(ctx, req)
	if err == nil {
		return resp, nil
	}
	var herr *httpclient.Error
	if errors.As(err, &herr) && herr.Response != nil {
		return herr.Response, nil
	}
	return nil, err
}

func newFinding(meta plugin.Metadata, title string, sev finding.Severity) finding.Vulnerability {
	return finding.Vulnerability{
		Plugin:    meta.Name,
		Category:  meta.Category,
		Title:     title,
		Severity:  sev,
		Timestamp: time.Now().UTC(),
	}
}

// excerpt returns at most defaults.BufferSmall bytes of s around index i.
func excerpt(s string, i int) string {
	const radius = 80
	i = min(max(i, 0), len(s))
	start := max(i-radius, 0)
	end := min(i+radius, len(s), start+defaults.BufferSmall)
	return s[start:end]
}
