// Package plugin defines the check contract every scanner plugin implements
// and the registry that discovers, validates and indexes plugins.
//
// A plugin is a single unit of work: given a target and a Requester it
// returns zero or more findings or an error. The scheduler treats it as
// opaque and never depends on a concrete implementation.
//
// Usage:
//
//	reg := plugin.NewRegistry()
//	builtin.RegisterAll(reg)
//	for _, w := range reg.Discover(cfg.Plugins.Directories...) {
//	    slog.Warn("plugin skipped", "source", w.Source, "error", w.Err)
//	}
//	selected, err := reg.Select(plugin.Selection{Enabled: cfg.Plugins.Enabled})
package plugin

import (
	"context"
	"fmt"
	"strings"

	"github.com/pyrate-scanner/pyrate/pkg/finding"
	"github.com/pyrate-scanner/pyrate/pkg/httpclient"
	"github.com/pyrate-scanner/pyrate/pkg/target"
)

// Requester is the HTTP surface handed to a plugin run. *httpclient.Client
// satisfies it; the scheduler wraps it with per-slot pacing.
type Requester interface {
	Do(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error)
}

// Plugin is the capability every check implements.
//
// Run must observe ctx at I/O boundaries. A plugin that ignores ctx is
// recorded as timed out and its goroutine is abandoned.
type Plugin interface {
	Metadata() Metadata
	Run(ctx context.Context, t *target.Target, r Requester) ([]finding.Vulnerability, error)
}

// Metadata describes a plugin. It is immutable once registered.
type Metadata struct {
	// Name is the unique identifier, e.g. "security_headers".
	Name string `json:"name"`

	Description string `json:"description"`

	// Category groups related checks, e.g. "headers" or "injection".
	Category string `json:"category"`

	// Risk is the plugin risk level, LOW through CRITICAL.
	Risk finding.Severity `json:"risk"`

	Version string `json:"version,omitempty"`
}

// Validate checks that m can be registered.
func (m Metadata) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidMetadata)
	}
	if strings.ContainsAny(m.Name, " \t\r\n,") {
		return fmt.Errorf("%w: name %q contains whitespace or commas", ErrInvalidMetadata, m.Name)
	}
	if !m.Risk.IsRiskLevel() {
		return fmt.Errorf("%w: plugin %q has invalid risk level %q", ErrInvalidMetadata, m.Name, m.Risk)
	}
	return nil
}

// Func adapts a function to the Plugin interface.
type Func struct {
	Meta  Metadata
	RunFn func(ctx context.Context, t *target.Target, r Requester) ([]finding.Vulnerability, error)
}

// Metadata returns f.Meta.
func (f *Func) Metadata() Metadata { return f.Meta }

// Run calls f.RunFn.
func (f *Func) Run(ctx context.Context, t *target.Target, r Requester) ([]finding.Vulnerability, error) {
	if f.RunFn == nil {
		return nil, nil
	}
	return f.RunFn(ctx, t, r)
}
