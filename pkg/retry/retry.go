// Package retry runs an operation again after transient failures, sleeping
// with capped exponential backoff between attempts.
//
// Usage:
//
//	err := retry.Do(ctx, cfg, func(attempt int) error {
//	    resp, err := send()
//	    if isPermanent(err) {
//	        return retry.Stop(err)
//	    }
//	    return err
//	})
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// Config controls retry behaviour.
type Config struct {
	// Retries is the number of additional attempts after the first.
	Retries int

	// InitDelay is the delay before the first retry. Each later retry
	// doubles it.
	InitDelay time.Duration

	// MaxDelay caps any single delay, jitter included.
	MaxDelay time.Duration

	// Jitter subtracts up to 25% of each delay at random.
	Jitter bool

	// OnRetry is called before sleeping for the next attempt.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// StopError wraps an error to signal that retrying should stop immediately.
type StopError struct {
	Err error
}

func (e *StopError) Error() string { return e.Err.Error() }
func (e *StopError) Unwrap() error { return e.Err }

// Stop wraps err so that Do returns it without further attempts.
// Stop(nil) returns nil.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return &StopError{Err: err}
}

// sleeper waits between attempts; tests replace it to avoid real delays.
type sleeper interface {
	sleep(ctx context.Context, d time.Duration) error
}

type timerSleeper struct{}

func (timerSleeper) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do calls fn until it succeeds, returns a StopError, exhausts cfg.Retries,
// or ctx ends. The attempt argument is zero-based. The returned error is the
// last error from fn, unwrapped from StopError; when ctx ends during a
// backoff the last fn error is returned rather than ctx.Err().
func Do(ctx context.Context, cfg Config, fn func(attempt int) error) error {
	return doWithSleeper(ctx, cfg, fn, timerSleeper{})
}

func doWithSleeper(ctx context.Context, cfg Config, fn func(attempt int) error, s sleeper) error {
	retries := max(cfg.Retries, 0)

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}

		var stop *StopError
		if errors.As(lastErr, &stop) {
			return stop.Err
		}

		if attempt == retries {
			break
		}

		delay := Backoff(cfg, attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, delay, lastErr)
		}
		if err := s.sleep(ctx, delay); err != nil {
			return lastErr
		}
	}
	return lastErr
}

// Backoff returns the delay before retry number attempt+1:
// InitDelay * 2^attempt, capped at MaxDelay, with optional jitter.
// The computation is done in float64 so large attempts saturate at MaxDelay
// instead of overflowing.
func Backoff(cfg Config, attempt int) time.Duration {
	if cfg.InitDelay <= 0 {
		return 0
	}
	ceiling := cfg.MaxDelay
	if ceiling <= 0 {
		ceiling = time.Duration(math.MaxInt64)
	}

	f := float64(cfg.InitDelay) * math.Pow(2, float64(max(attempt, 0)))
	delay := ceiling
	if !math.IsInf(f, 0) && f < float64(ceiling) {
		delay = time.Duration(f)
	}

	if cfg.Jitter {
		if quarter := int64(delay) / 4; quarter > 0 {
			delay -= time.Duration(rand.Int64N(quarter))
		}
	}
	return delay
}
