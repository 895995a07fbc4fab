package builtin

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/pyrate-scanner/pyrate/pkg/finding"
	"github.com/pyrate-scanner/pyrate/pkg/httpclient"
	"github.com/pyrate-scanner/pyrate/pkg/plugin"
	"github.com/pyrate-scanner/pyrate/pkg/target"
)

// tokenNames are substrings of hidden input names that carry an
// anti-CSRF token in common frameworks.
var tokenNames = []string{
	"csrf",
	"xsrf",
	"_token",
	"authenticity_token",
	"__requestverificationtoken",
	"nonce",
}

// CSRF reports state-changing forms without an anti-CSRF token.
type CSRF struct {
	meta plugin.Metadata
}

// NewCSRF creates the csrf plugin.
func NewCSRF() *CSRF {
	return &CSRF{meta: plugin.Metadata{
		Name:        "csrf",
		Description: "Detects POST forms that lack an anti-CSRF token",
		Category:    "forms",
		Risk:        finding.Medium,
		Version:     version,
	}}
}

func (p *CSRF) Metadata() plugin.Metadata { return p.meta }

func (p *CSRF) Run(ctx context.Context, t *target.Target, r plugin.Requester) ([]finding.Vulnerability, error) {
	resp, err := fetch(ctx, r, &httpclient.Request{URL: t.URL})
	if err != nil {
		return nil, err
	}
	if !isHTML(resp) {
		return nil, nil
	}

	doc, err := html.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	// A meta csrf-token is read by JavaScript frameworks and attached to
	// every request, so forms on the page are protected.
	if hasMetaToken(doc) {
		return nil, nil
	}

	severity := p.meta.Risk
	if sameSiteProtected(resp.Header) {
		severity = finding.Low
	}

	var out []finding.Vulnerability
	for i, form := range forms(doc) {
		if !strings.EqualFold(attr(form, "method"), http.MethodPost) {
			continue
		}
		if formHasToken(form) {
			continue
		}
		action := attr(form, "action")
		loc := resp.URL
		if action != "" {
			loc = t.Resolve(action)
		}

		f := newFinding(p.meta, "Form without CSRF token", severity)
		f.Description = fmt.Sprintf("POST form #%d submits to %s without a token-like hidden field.", i+1, loc)
		f.Location = loc
		f.Evidence = renderOpenTag(form)
		f.Recommendation = "Include a per-session anti-CSRF token in every state-changing form and verify it server side."
		f.Confidence = 0.7
		out = append(out, f)
	}
	return out, nil
}

func isHTML(resp *httpclient.Response) bool {
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if ct != "" {
		return strings.Contains(ct, "html")
	}
	return bytes.Contains(bytes.ToLower(resp.Body[:min(len(resp.Body), 512)]), []byte("<html"))
}

func forms(n *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "form" {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func formHasToken(form *html.Node) bool {
	found := false
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found {
			return
		}
		if n.Type == html.ElementNode && n.Data == "input" &&
			strings.EqualFold(attr(n, "type"), "hidden") && isTokenName(attr(n, "name")) {
			found = true
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(form)
	return found
}

func hasMetaToken(doc *html.Node) bool {
	found := false
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found {
			return
		}
		if n.Type == html.ElementNode && n.Data == "meta" && isTokenName(attr(n, "name")) {
			found = true
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}

func isTokenName(name string) bool {
	name = strings.ToLower(name)
	for _, t := range tokenNames {
		if strings.Contains(name, t) {
			return true
		}
	}
	return false
}

// sameSiteProtected reports whether every cookie set by the response uses
// SameSite Lax or Strict.
func sameSiteProtected(h http.Header) bool {
	cookies := (&http.Response{Header: h}).Cookies()
	if len(cookies) == 0 {
		return false
	}
	for _, c := range cookies {
		if c.SameSite != http.SameSiteLaxMode && c.SameSite != http.SameSiteStrictMode {
			return false
		}
	}
	return true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func renderOpenTag(n *html.Node) string {
	var b strings.Builder
	b.WriteString("<" + n.Data)
	for _, a := range n.Attr {
		fmt.Fprintf(&b, " %s=%q", a.Key, a.Val)
	}
	b.WriteString(">")
	return b.String()
}
