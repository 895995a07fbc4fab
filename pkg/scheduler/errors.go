package scheduler

import "errors"

var (
	// ErrNoPluginsSelected is returned before any network activity when the
	// plugin selection is empty.
	ErrNoPluginsSelected = errors.New("scheduler: no plugins selected")

	// ErrDuplicatePlugin is returned when two selected plugins share a name.
	ErrDuplicatePlugin = errors.New("scheduler: duplicate plugin name")

	// ErrNoTargets is returned by RunTargets with an empty target list.
	ErrNoTargets = errors.New("scheduler: no targets")
)
