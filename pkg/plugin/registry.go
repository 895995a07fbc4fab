package plugin

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/pyrate-scanner/pyrate/pkg/finding"
)

// Loader builds a plugin from a file found during discovery.
type Loader interface {
	Load(path string) (Plugin, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(path string) (Plugin, error)

// Load calls f.
func (f LoaderFunc) Load(path string) (Plugin, error) { return f(path) }

type entry struct {
	meta   Metadata
	plugin Plugin
	source string
}

// Registry indexes plugins by name in first-seen order. It is safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	entries  []entry
	index    map[string]int
	warnings []Warning
	loaders  map[string]Loader
	logger   *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithLoader registers a loader for a file extension such as ".tengo".
// A nil loader disables the extension.
func WithLoader(ext string, l Loader) RegistryOption {
	return func(r *Registry) {
		ext = strings.ToLower(ext)
		if l == nil {
			delete(r.loaders, ext)
			return
		}
		r.loaders[ext] = l
	}
}

// NewRegistry creates an empty registry with the script and Go plugin
// loaders installed.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		index:  make(map[string]int),
		logger: slog.Default(),
		loaders: map[string]Loader{
			ScriptExt: LoaderFunc(LoadScript),
			GoExt:     LoaderFunc(LoadGoPlugin),
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register validates and indexes p. Invalid or duplicate plugins are
// rejected, recorded as warnings and the error is returned.
func (r *Registry) Register(p Plugin) error {
	return r.register(p, "")
}

// MustRegister is Register for plugins compiled into the binary, where a
// failure is a programming error.
func (r *Registry) MustRegister(p Plugin) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

func (r *Registry) register(p Plugin, source string) error {
	if p == nil {
		return r.warn(source, ErrNilPlugin)
	}
	meta := p.Metadata()
	meta.Risk = finding.Severity(strings.ToLower(string(meta.Risk)))
	if source == "" {
		source = meta.Name
	}
	if err := meta.Validate(); err != nil {
		return r.warn(source, err)
	}

	r.mu.Lock()
	if i, ok := r.index[meta.Name]; ok {
		first := r.entries[i].source
		r.mu.Unlock()
		return r.warn(source, fmt.Errorf("%w: %q already registered from %s", ErrDuplicatePlugin, meta.Name, first))
	}
	r.index[meta.Name] = len(r.entries)
	r.entries = append(r.entries, entry{meta: meta, plugin: p, source: source})
	r.mu.Unlock()

	r.logger.Debug("plugin registered",
		slog.String("plugin", meta.Name),
		slog.String("category", meta.Category),
		slog.String("risk", string(meta.Risk)),
		slog.String("source", source),
	)
	return nil
}

func (r *Registry) warn(source string, err error) error {
	r.mu.Lock()
	r.warnings = append(r.warnings, Warning{Source: source, Err: err})
	r.mu.Unlock()
	r.logger.Warn("plugin skipped", slog.String("source", source), slog.String("error", err.Error()))
	return err
}

// Discover loads plugin files from each directory in order. Files are
// visited in lexical order and dispatched by extension; files with no
// loader are ignored. Directories are not walked recursively. Every
// problem is returned as a warning and also kept in Warnings.
func (r *Registry) Discover(dirs ...string) []Warning {
	var out []Warning
	for _, dir := range dirs {
		out = append(out, r.discoverDir(dir)...)
	}
	return out
}

func (r *Registry) discoverDir(dir string) []Warning {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("plugin directory does not exist: %w", err)
		}
		w := Warning{Source: dir, Err: err}
		_ = r.warn(dir, err)
		return []Warning{w}
	}

	// os.ReadDir already sorts by name
	var out []Warning
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		r.mu.RLock()
		loader, ok := r.loaders[ext]
		r.mu.RUnlock()
		if !ok {
			continue
		}

		path := filepath.Join(dir, e.Name())
		p, err := loader.Load(path)
		if err != nil {
			out = append(out, Warning{Source: path, Err: err})
			_ = r.warn(path, err)
			continue
		}
		if err := r.register(p, path); err != nil {
			out = append(out, Warning{Source: path, Err: err})
		}
	}
	return out
}

// Get returns the plugin registered under name.
func (r *Registry) Get(name string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[name]
	if !ok {
		return nil, r.notFound(name)
	}
	return r.entries[i].plugin, nil
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Category string
	Risk     finding.Severity
}

func (f Filter) match(m Metadata) bool {
	if f.Category != "" && !strings.EqualFold(f.Category, m.Category) {
		return false
	}
	if f.Risk != "" && !strings.EqualFold(string(f.Risk), string(m.Risk)) {
		return false
	}
	return true
}

// List returns metadata for plugins matching f in registration order.
func (r *Registry) List(f Filter) []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Metadata, 0, len(r.entries))
	for _, e := range r.entries {
		if f.match(e.meta) {
			out = append(out, e.meta)
		}
	}
	return out
}

// Plugins returns every registered plugin in registration order.
func (r *Registry) Plugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.plugin
	}
	return out
}

// Source returns where the named plugin was loaded from: a file path, or
// the plugin name for plugins registered in process.
func (r *Registry) Source(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i, ok := r.index[name]; ok {
		return r.entries[i].source
	}
	return ""
}

// Categories returns the distinct categories, sorted.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, e := range r.entries {
		c := strings.ToLower(e.meta.Category)
		if _, ok := seen[c]; ok || c == "" {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Names returns plugin names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.meta.Name
	}
	return out
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Warnings returns every warning recorded so far.
func (r *Registry) Warnings() []Warning {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.warnings)
}
