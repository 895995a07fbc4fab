package cli

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalContext_CancelOnInterrupt(t *testing.T) {
	t.Parallel()

	sigChan := make(chan os.Signal, 1)
	var got atomic.Value
	ctx, stop := watchSignals(context.Background(), 5*time.Second, func(s os.Signal) { got.Store(s) }, sigChan, func(int) {})
	defer stop()

	sigChan <- syscall.SIGTERM

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not canceled after signal")
	}
	assert.ErrorIs(t, context.Cause(ctx), ErrInterrupted)
	assert.Equal(t, syscall.SIGTERM, got.Load())
}

func TestSignalContext_StopIsNotInterrupt(t *testing.T) {
	t.Parallel()

	ctx, stop := watchSignals(context.Background(), time.Second, nil, make(chan os.Signal, 1), nil)
	stop()
	stop()

	<-ctx.Done()
	assert.False(t, errors.Is(context.Cause(ctx), ErrInterrupted))
}

func TestSignalContext_ParentCancel(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := watchSignals(parent, time.Second, nil, make(chan os.Signal, 1), nil)
	defer stop()

	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("parent cancellation did not propagate")
	}
	assert.ErrorIs(t, context.Cause(ctx), context.Canceled)
}

func TestSignalContext_SecondSignalExits(t *testing.T) {
	t.Parallel()

	sigChan := make(chan os.Signal, 2)
	var exitCode atomic.Int32
	exitCode.Store(-1)

	ctx, stop := watchSignals(context.Background(), 5*time.Second, nil, sigChan, func(code int) {
		exitCode.Store(int32(code))
	})
	defer stop()

	sigChan <- os.Interrupt
	<-ctx.Done()
	sigChan <- os.Interrupt

	require.Eventually(t, func() bool {
		return exitCode.Load() == ExitInterrupted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSignalContext_GracePeriodExpires(t *testing.T) {
	t.Parallel()

	sigChan := make(chan os.Signal, 2)
	var exitCalled atomic.Bool

	ctx, stop := watchSignals(context.Background(), 50*time.Millisecond, nil, sigChan, func(int) {
		exitCalled.Store(true)
	})
	defer stop()

	sigChan <- os.Interrupt
	<-ctx.Done()
	time.Sleep(200 * time.Millisecond)

	// A late signal after the grace period is ignored.
	sigChan <- os.Interrupt
	time.Sleep(50 * time.Millisecond)
	assert.False(t, exitCalled.Load())
}

func TestSignalContext_NoSignal(t *testing.T) {
	t.Parallel()

	ctx, stop := watchSignals(context.Background(), time.Second, nil, make(chan os.Signal, 1), nil)
	defer stop()

	select {
	case <-ctx.Done():
		t.Fatal("context should not be canceled without a signal")
	default:
	}
}
