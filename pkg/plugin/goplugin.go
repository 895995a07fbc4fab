package plugin

import (
	"fmt"
	goplugin "plugin"
)

// GoExt is the file extension of compiled Go plugins.
const GoExt = ".so"

// GoSymbol is the symbol a Go plugin must export. It may be a value
// implementing Plugin or a pointer to one.
const GoSymbol = "Plugin"

// LoadGoPlugin opens a Go plugin built with -buildmode=plugin against the
// same module version as the scanner.
func LoadGoPlugin(path string) (Plugin, error) {
	return loadGoSymbol(path, func(path string) (any, error) {
		p, err := goplugin.Open(path)
		if err != nil {
			return nil, err
		}
		return p.Lookup(GoSymbol)
	})
}

func loadGoSymbol(path string, lookup func(path string) (any, error)) (Plugin, error) {
	sym, err := lookup(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, path, err)
	}

	switch p := sym.(type) {
	case Plugin:
		return p, nil
	case *Plugin:
		if p != nil && *p != nil {
			return *p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s: symbol %s (%T) does not implement Plugin", ErrLoad, path, GoSymbol, sym)
}
