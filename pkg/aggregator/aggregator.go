// Package aggregator merges per-plugin outcomes into one scan result.
//
// The aggregator is the only mutable state shared between concurrent plugin
// runs. Record is safe for concurrent callers; Finalize produces an
// immutable ScanResult whose findings follow plugin registration order, not
// completion order, so reruns are order-stable.
package aggregator

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pyrate-scanner/pyrate/pkg/finding"
)

// Aggregator collects outcomes for one scan of one target.
type Aggregator struct {
	mu        sync.Mutex
	id        string
	target    string
	order     []string
	expected  map[string]struct{}
	outcomes  map[string]Outcome
	startedAt time.Time
	finalized bool
	now       func() time.Time
}

// New creates an aggregator expecting exactly one outcome for each name in
// order. order is the plugin registration order and fixes findings order.
func New(target string, order []string) *Aggregator {
	expected := make(map[string]struct{}, len(order))
	for _, name := range order {
		expected[name] = struct{}{}
	}
	a := &Aggregator{
		id:       uuid.NewString(),
		target:   target,
		order:    append([]string(nil), order...),
		expected: expected,
		outcomes: make(map[string]Outcome, len(order)),
		now:      time.Now,
	}
	a.startedAt = a.now().UTC()
	return a
}

// ID returns the scan identifier.
func (a *Aggregator) ID() string { return a.id }

// StartedAt returns when the aggregator was created.
func (a *Aggregator) StartedAt() time.Time { return a.startedAt }

// Record stores the outcome for plugin name.
func (a *Aggregator) Record(name string, o Outcome) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		return ErrFinalized
	}
	if _, ok := a.expected[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnexpectedPlugin, name)
	}
	if _, ok := a.outcomes[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateOutcome, name)
	}
	if o.Status != StatusOK {
		o.Findings = nil
	}
	a.outcomes[name] = o
	return nil
}

// Finalize builds the ScanResult. state must be terminal and every expected
// plugin must have an outcome. After Finalize, Record fails.
func (a *Aggregator) Finalize(state State) (*ScanResult, error) {
	if !state.Terminal() {
		return nil, fmt.Errorf("%w: %s", ErrNotTerminal, state)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if missing := len(a.order) - len(a.outcomes); missing > 0 {
		return nil, fmt.Errorf("%w: %d of %d outcomes missing", ErrIncompleteScan, missing, len(a.order))
	}
	a.finalized = true

	res := &ScanResult{
		ID:         a.id,
		Target:     a.target,
		State:      state,
		StartedAt:  a.startedAt,
		FinishedAt: a.now().UTC(),
		Plugins:    append([]string(nil), a.order...),
		Outcomes:   make(map[string]Outcome, len(a.outcomes)),
		Findings:   []finding.Vulnerability{},
		Errors:     []PluginError{},
	}

	for _, name := range a.order {
		o := a.outcomes[name]
		res.Outcomes[name] = o
		if o.IsOK() {
			res.Findings = append(res.Findings, o.Findings...)
			continue
		}
		res.Errors = append(res.Errors, PluginError{Plugin: name, Kind: o.Reason, Detail: o.Detail})
	}

	res.Summary = Summarize(res.Findings)
	res.Summary.Plugins = countPlugins(res.Outcomes)
	res.Summary.Duration = res.FinishedAt.Sub(res.StartedAt)
	return res, nil
}

// SettledState derives the terminal state of a scan that was not aborted:
// Completed if every recorded outcome is Ok, PartiallyFailed otherwise.
func (a *Aggregator) SettledState() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, o := range a.outcomes {
		if !o.IsOK() {
			return StatePartiallyFailed
		}
	}
	return StateCompleted
}
