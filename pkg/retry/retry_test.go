package retry

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSleeper records delays without sleeping.
type fakeSleeper struct {
	delays []time.Duration
	err    error
}

func (f *fakeSleeper) sleep(ctx context.Context, d time.Duration) error {
	if f.err != nil {
		return f.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.delays = append(f.delays, d)
	return nil
}

var errTemporary = errors.New("temporary")

func TestDo_SucceedsFirstTry(t *testing.T) {
	t.Parallel()

	s := &fakeSleeper{}
	calls := 0
	err := doWithSleeper(context.Background(), Config{Retries: 3, InitDelay: time.Second}, func(int) error {
		calls++
		return nil
	}, s)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, s.delays)
}

func TestDo_RetriesWithExponentialBackoff(t *testing.T) {
	t.Parallel()

	s := &fakeSleeper{}
	var attempts []int
	cfg := Config{Retries: 3, InitDelay: time.Second, MaxDelay: 30 * time.Second}

	err := doWithSleeper(context.Background(), cfg, func(attempt int) error {
		attempts = append(attempts, attempt)
		if attempt < 2 {
			return errTemporary
		}
		return nil
	}, s)

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, s.delays)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	s := &fakeSleeper{}
	calls := 0
	err := doWithSleeper(context.Background(), Config{Retries: 2, InitDelay: time.Millisecond}, func(int) error {
		calls++
		return errTemporary
	}, s)

	assert.ErrorIs(t, err, errTemporary)
	assert.Equal(t, 3, calls)
	assert.Len(t, s.delays, 2)
}

func TestDo_ZeroRetriesRunsOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	err := doWithSleeper(context.Background(), Config{}, func(int) error {
		calls++
		return errTemporary
	}, &fakeSleeper{})

	assert.ErrorIs(t, err, errTemporary)
	assert.Equal(t, 1, calls)
}

func TestDo_StopErrorHaltsImmediately(t *testing.T) {
	t.Parallel()

	permanent := errors.New("404")
	s := &fakeSleeper{}
	calls := 0
	err := doWithSleeper(context.Background(), Config{Retries: 5, InitDelay: time.Second}, func(int) error {
		calls++
		return Stop(permanent)
	}, s)

	assert.Equal(t, permanent, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, s.delays)
}

func TestStop_Nil(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Stop(nil))
}

func TestDo_CancelledContextBeforeFirstAttempt(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := doWithSleeper(ctx, Config{Retries: 3}, func(int) error {
		calls++
		return nil
	}, &fakeSleeper{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestDo_SleepInterruptedReturnsLastError(t *testing.T) {
	t.Parallel()

	s := &fakeSleeper{err: context.DeadlineExceeded}
	err := doWithSleeper(context.Background(), Config{Retries: 3, InitDelay: time.Second}, func(int) error {
		return errTemporary
	}, s)

	assert.ErrorIs(t, err, errTemporary)
}

func TestDo_OnRetryCallback(t *testing.T) {
	t.Parallel()

	var seen []int
	cfg := Config{
		Retries:   2,
		InitDelay: time.Millisecond,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			seen = append(seen, attempt)
			assert.ErrorIs(t, err, errTemporary)
		},
	}
	_ = doWithSleeper(context.Background(), cfg, func(int) error { return errTemporary }, &fakeSleeper{})

	assert.Equal(t, []int{1, 2}, seen)
}

func TestDo_RealSleeper(t *testing.T) {
	t.Parallel()

	start := time.Now()
	calls := 0
	err := Do(context.Background(), Config{Retries: 1, InitDelay: 10 * time.Millisecond}, func(int) error {
		calls++
		if calls == 1 {
			return errTemporary
		}
		return nil
	})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	cfg := Config{InitDelay: time.Second, MaxDelay: 10 * time.Second}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second},
		{-1, time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Backoff(cfg, tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestBackoff_OverflowSaturates(t *testing.T) {
	t.Parallel()

	cfg := Config{InitDelay: time.Second, MaxDelay: 30 * time.Second}
	for _, attempt := range []int{62, 63, 64, 1000, math.MaxInt32} {
		d := Backoff(cfg, attempt)
		require.Equal(t, cfg.MaxDelay, d, "attempt %d", attempt)
	}

	uncapped := Config{InitDelay: time.Second}
	assert.Positive(t, Backoff(uncapped, 5000))
}

func TestBackoff_JitterStaysInBounds(t *testing.T) {
	t.Parallel()

	cfg := Config{InitDelay: 8 * time.Second, MaxDelay: 30 * time.Second, Jitter: true}
	for i := 0; i < 500; i++ {
		d := Backoff(cfg, 0)
		assert.LessOrEqual(t, d, 8*time.Second)
		assert.Greater(t, d, 6*time.Second-time.Nanosecond)
	}
}

func TestBackoff_ZeroInitDelay(t *testing.T) {
	t.Parallel()
	assert.Zero(t, Backoff(Config{MaxDelay: time.Second}, 3))
}
