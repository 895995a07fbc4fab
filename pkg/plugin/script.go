package plugin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/pyrate-scanner/pyrate/pkg/finding"
	"github.com/pyrate-scanner/pyrate/pkg/httpclient"
	"github.com/pyrate-scanner/pyrate/pkg/target"
)

// ScriptExt is the file extension of script plugins.
const ScriptExt = ".tengo"

// safeModules are the only Tengo stdlib modules available to scripts.
// No file I/O, no network, no OS access.
var safeModules = stdlib.GetModuleMap("text", "fmt", "math", "times")

const scriptMaxAllocs = 10_000_000

// ScriptPlugin is a plugin written in Tengo. The script declares its
// metadata as top-level variables and a check function:
//
//	name := "admin_panel"
//	description := "Exposed admin panel"
//	category := "exposure"
//	risk := "medium"
//	path := "/admin/"              // optional, resolved against the target
//	method := "GET"                // optional
//	headers := {"X-Probe": "1"}    // optional
//
//	check := func(resp) {
//	    if resp.status == 200 {
//	        return [{title: "Admin panel reachable", evidence: resp.url}]
//	    }
//	    return []
//	}
//
// resp carries status, headers (lowercased names), body and url. Each
// returned map needs a title; severity defaults to the plugin risk and
// location to the response URL. The HTTP request is issued by the host,
// scripts have no network access of their own.
type ScriptPlugin struct {
	meta     Metadata
	method   string
	path     string
	headers  http.Header
	compiled *tengo.Compiled
}

// LoadScript compiles a .tengo file and extracts its metadata.
func LoadScript(path string) (Plugin, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read script %s: %v", ErrLoad, path, err)
	}
	return ParseScript(data)
}

// ParseScript compiles script source.
func ParseScript(src []byte) (*ScriptPlugin, error) {
	script := tengo.NewScript(src)
	script.SetImports(safeModules)
	script.SetMaxAllocs(scriptMaxAllocs)

	compiled, err := script.Run()
	if err != nil {
		return nil, fmt.Errorf("%w: compile script: %v", ErrLoad, err)
	}

	for _, required := range []string{"name", "description", "risk", "check"} {
		if compiled.Get(required).IsUndefined() {
			return nil, fmt.Errorf("%w: script missing %q", ErrLoad, required)
		}
	}

	sp := &ScriptPlugin{
		meta: Metadata{
			Name:        compiled.Get("name").String(),
			Description: compiled.Get("description").String(),
			Category:    "custom",
			Risk:        finding.Severity(strings.ToLower(compiled.Get("risk").String())),
			Version:     optString(compiled, "version"),
		},
		method:  strings.ToUpper(optString(compiled, "method")),
		path:    optString(compiled, "path"),
		headers: make(http.Header),
	}
	if c := optString(compiled, "category"); c != "" {
		sp.meta.Category = c
	}
	if sp.method == "" {
		sp.method = http.MethodGet
	}
	if h := compiled.Get("headers"); !h.IsUndefined() {
		for k, v := range h.Map() {
			sp.headers.Set(k, fmt.Sprint(v))
		}
	}

	if err := sp.precompile(src); err != nil {
		return nil, err
	}
	return sp, nil
}

func optString(c *tengo.Compiled, name string) string {
	v := c.Get(name)
	if v.IsUndefined() {
		return ""
	}
	return v.String()
}

// precompile builds the wrapper once; each Run clones it.
func (s *ScriptPlugin) precompile(src []byte) error {
	wrapper := fmt.Sprintf("%s\n__result__ := check(__response__)\n", src)

	script := tengo.NewScript([]byte(wrapper))
	script.SetImports(safeModules)
	script.SetMaxAllocs(scriptMaxAllocs)
	_ = script.Add("__response__", map[string]interface{}{})

	compiled, err := script.Compile()
	if err != nil {
		return fmt.Errorf("%w: precompile script %s: %v", ErrLoad, s.meta.Name, err)
	}
	s.compiled = compiled
	return nil
}

// Metadata returns the script metadata.
func (s *ScriptPlugin) Metadata() Metadata { return s.meta }

// Run issues the script's request and passes the response to check.
// Error status responses are still checked.
func (s *ScriptPlugin) Run(ctx context.Context, t *target.Target, r Requester) ([]finding.Vulnerability, error) {
	url := t.URL
	if s.path != "" {
		url = t.Resolve(s.path)
	}

	resp, err := r.Do(ctx, &httpclient.Request{Method: s.method, URL: url, Headers: s.headers.Clone()})
	if err != nil {
		var herr *httpclient.Error
		if !errors.As(err, &herr) || herr.Response == nil {
			return nil, err
		}
		resp = herr.Response
	}

	headers := make(map[string]interface{}, len(resp.Header))
	for k := range resp.Header {
		headers[strings.ToLower(k)] = resp.Header.Get(k)
	}

	c := s.compiled.Clone()
	if err := c.Set("__response__", map[string]interface{}{
		"status":  resp.StatusCode,
		"headers": headers,
		"body":    resp.BodyString(),
		"url":     resp.URL,
	}); err != nil {
		return nil, fmt.Errorf("script %s: %w", s.meta.Name, err)
	}
	if err := c.RunContext(ctx); err != nil {
		return nil, fmt.Errorf("script %s: %w", s.meta.Name, err)
	}

	return s.findings(c.Get("__result__"), resp.URL)
}

func (s *ScriptPlugin) findings(v *tengo.Variable, location string) ([]finding.Vulnerability, error) {
	if v == nil || v.IsUndefined() {
		return nil, nil
	}
	items, ok := v.Value().([]interface{})
	if !ok {
		return nil, fmt.Errorf("script %s: check must return an array, got %s", s.meta.Name, v.ValueType())
	}

	now := time.Now().UTC()
	out := make([]finding.Vulnerability, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("script %s: finding %d is not a map", s.meta.Name, i)
		}
		f := finding.Vulnerability{
			Plugin:         s.meta.Name,
			Category:       s.meta.Category,
			Title:          mapString(m, "title"),
			Description:    mapString(m, "description"),
			Severity:       s.meta.Risk,
			Evidence:       mapString(m, "evidence"),
			Location:       location,
			Recommendation: mapString(m, "recommendation"),
			Payload:        mapString(m, "payload"),
			Timestamp:      now,
		}
		if sev := mapString(m, "severity"); sev != "" {
			f.Severity = finding.Severity(strings.ToLower(sev))
		}
		if loc := mapString(m, "location"); loc != "" {
			f.Location = loc
		}
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("script %s: finding %d: %w", s.meta.Name, i, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func mapString(m map[string]interface{}, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
