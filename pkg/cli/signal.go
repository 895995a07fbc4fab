// Package cli holds process-level helpers shared by the pyrate commands.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ErrInterrupted is the context cause when the user interrupts a scan.
var ErrInterrupted = errors.New("interrupted by signal")

// ExitInterrupted is the process status after a forced second interrupt.
const ExitInterrupted = 130

// SignalContext derives a context from parent that is canceled with cause
// ErrInterrupted on SIGINT or SIGTERM. In-flight plugins then finish or
// time out and the scan is finalized as aborted.
//
// A second signal within gracePeriod exits the process immediately.
// onSignal, if set, is called once with the first signal.
//
//	ctx, stop := cli.SignalContext(ctx, 10*time.Second, nil)
//	defer stop()
//	...
//	if errors.Is(context.Cause(ctx), cli.ErrInterrupted) { ... }
func SignalContext(parent context.Context, gracePeriod time.Duration, onSignal func(os.Signal)) (context.Context, context.CancelFunc) {
	return watchSignals(parent, gracePeriod, onSignal, nil, nil)
}

// watchSignals is SignalContext with injectable signal source and exit
// function for tests.
func watchSignals(
	parent context.Context,
	gracePeriod time.Duration,
	onSignal func(os.Signal),
	sigChan chan os.Signal,
	exitFn func(int),
) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)

	ownChannel := sigChan == nil
	if ownChannel {
		sigChan = make(chan os.Signal, 2)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	}
	if exitFn == nil {
		exitFn = os.Exit
	}

	done := make(chan struct{})
	go func() {
		defer func() {
			if ownChannel {
				signal.Stop(sigChan)
			}
		}()
		select {
		case sig := <-sigChan:
			if onSignal != nil {
				onSignal(sig)
			}
			cancel(ErrInterrupted)
		case <-done:
			return
		case <-ctx.Done():
			return
		}

		timer := time.NewTimer(gracePeriod)
		defer timer.Stop()
		select {
		case <-sigChan:
			exitFn(ExitInterrupted)
		case <-timer.C:
		case <-done:
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() { close(done) })
		cancel(context.Canceled)
	}
	return ctx, stop
}
