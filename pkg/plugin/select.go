package plugin

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agext/levenshtein"
)

// Selection chooses the active plugin set.
//
// Enabled and Disabled mirror the config file lists: a nil Enabled means
// every registered plugin, while a non-nil empty Enabled selects nothing.
// Names and Categories come from the command line and further narrow the
// set when non-empty.
type Selection struct {
	Names      []string
	Categories []string
	Enabled    []string
	Disabled   []string
}

// Select resolves sel against the registry. The result is in registration
// order. Unknown names yield ErrNotFound with a suggestion; unknown
// categories yield ErrUnknownCategory. An empty result is not an error here.
func (r *Registry) Select(sel Selection) ([]Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	enabled, err := r.nameSet(sel.Enabled)
	errs = append(errs, err)
	names, err := r.nameSet(sel.Names)
	errs = append(errs, err)
	disabled, err := r.nameSet(sel.Disabled)
	errs = append(errs, err)

	cats := make(map[string]struct{}, len(sel.Categories))
	for _, c := range sel.Categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if !r.hasCategory(c) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownCategory, c))
			continue
		}
		cats[c] = struct{}{}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	out := make([]Plugin, 0, len(r.entries))
	for _, e := range r.entries {
		name := e.meta.Name
		if sel.Enabled != nil {
			if _, ok := enabled[name]; !ok {
				continue
			}
		}
		if len(names) > 0 {
			if _, ok := names[name]; !ok {
				continue
			}
		}
		if len(cats) > 0 {
			if _, ok := cats[strings.ToLower(e.meta.Category)]; !ok {
				continue
			}
		}
		if _, ok := disabled[name]; ok {
			continue
		}
		out = append(out, e.plugin)
	}
	return out, nil
}

// nameSet validates names against the index. Caller holds r.mu.
func (r *Registry) nameSet(names []string) (map[string]struct{}, error) {
	set := make(map[string]struct{}, len(names))
	var errs []error
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := r.index[n]; !ok {
			errs = append(errs, r.notFound(n))
			continue
		}
		set[n] = struct{}{}
	}
	return set, errors.Join(errs...)
}

func (r *Registry) hasCategory(c string) bool {
	for _, e := range r.entries {
		if strings.EqualFold(e.meta.Category, c) {
			return true
		}
	}
	return false
}

// notFound builds ErrNotFound with the closest registered name when one is
// near enough. Caller holds r.mu.
func (r *Registry) notFound(name string) error {
	if s := r.suggest(name); s != "" {
		return fmt.Errorf("%w: %q (did you mean %q?)", ErrNotFound, name, s)
	}
	return fmt.Errorf("%w: %q", ErrNotFound, name)
}

func (r *Registry) suggest(name string) string {
	best, bestDist := "", -1
	lower := strings.ToLower(name)
	for _, e := range r.entries {
		d := levenshtein.Distance(lower, strings.ToLower(e.meta.Name), nil)
		if bestDist < 0 || d < bestDist {
			best, bestDist = e.meta.Name, d
		}
	}
	// allow roughly one typo per four characters
	if bestDist < 0 || bestDist > max(2, len(name)/4) {
		return ""
	}
	return best
}
