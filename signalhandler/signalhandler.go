package signalhandler

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
)

// SetupHandler returns a context cancelled on SIGINT or SIGTERM. A second
// signal after cancellation exits immediately with status 130. The returned
// stop func releases the signal channel and its goroutine.
func SetupHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		watch(ctx, sigChan, done, cancel, os.Exit)
		signal.Stop(sigChan)
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			signal.Stop(sigChan)
			close(done)
		})
		cancel()
	}
}

// watch cancels on the first signal and calls exit(130) on the second. It
// returns once done is closed, or when ctx ends before any signal arrived.
func watch(ctx context.Context, sigChan <-chan os.Signal, done <-chan struct{}, cancel context.CancelFunc, exit func(int)) {
	select {
	case <-sigChan:
		cancel()
	case <-ctx.Done():
		return
	case <-done:
		return
	}

	select {
	case <-sigChan:
		exit(130)
	case <-done:
	}
}

// GetOptimalProcs returns the default number of fingerprint workers
func GetOptimalProcs() int {
	// OpenCV spawns its own threads per decode; leave headroom.
	maxProcs := (runtime.NumCPU() * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}
	return maxProcs
}
