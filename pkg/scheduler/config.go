package scheduler

import (
	"fmt"
	"time"

	"github.com/pyrate-scanner/pyrate/pkg/defaults"
	"github.com/pyrate-scanner/pyrate/pkg/duration"
)

// Config is the immutable scheduling policy for a scan.
type Config struct {
	// MaxConcurrent bounds simultaneously running plugins.
	MaxConcurrent int

	// PluginTimeout bounds a single plugin run.
	PluginTimeout time.Duration

	// InterRequestDelay spaces requests dispatched from the same slot.
	InterRequestDelay time.Duration

	// HardDeadline stops admitting plugins once elapsed; zero disables it.
	HardDeadline time.Duration

	// AllowRestricted permits loopback, private and link-local targets.
	AllowRestricted bool
}

// DefaultConfig returns the default scheduling policy.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:     defaults.ConcurrencyMedium,
		PluginTimeout:     duration.PluginTimeout,
		InterRequestDelay: duration.InterRequestDelay,
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("scheduler: max concurrent must be at least 1, got %d", c.MaxConcurrent)
	}
	if c.PluginTimeout <= 0 {
		return fmt.Errorf("scheduler: plugin timeout must be positive, got %s", c.PluginTimeout)
	}
	if c.InterRequestDelay < 0 {
		return fmt.Errorf("scheduler: inter-request delay must not be negative, got %s", c.InterRequestDelay)
	}
	if c.HardDeadline < 0 {
		return fmt.Errorf("scheduler: hard deadline must not be negative, got %s", c.HardDeadline)
	}
	return nil
}
