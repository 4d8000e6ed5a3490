package scanner

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"imagededup/logging"

	"github.com/mattn/go-isatty"
)

// ProgressTracker counts fingerprint results and, on a terminal, redraws a
// single progress line
type ProgressTracker struct {
	processed int
	errors    int
	total     int
	out       io.Writer
	live      bool
	ticker    *time.Ticker
	done      chan struct{}
	drained   chan struct{}
	mu        sync.Mutex
}

// isTerminal reports whether w is a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// NewProgressTracker starts consuming resultsChan. The caller closes the
// channel and then calls Stop.
func NewProgressTracker(out io.Writer, total int, resultsChan <-chan ProcessImageResult) *ProgressTracker {
	tracker := &ProgressTracker{
		total:   total,
		out:     out,
		live:    isTerminal(out),
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}

	if tracker.live {
		tracker.ticker = time.NewTicker(250 * time.Millisecond)
		go tracker.displayProgress()
	}
	go tracker.processResults(resultsChan)

	return tracker
}

func (p *ProgressTracker) line() string {
	if p.errors > 0 {
		return fmt.Sprintf("\rFingerprinting: %d/%d (Errors: %d)", p.processed, p.total, p.errors)
	}
	return fmt.Sprintf("\rFingerprinting: %d/%d", p.processed, p.total)
}

func (p *ProgressTracker) displayProgress() {
	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			p.mu.Lock()
			fmt.Fprint(p.out, p.line())
			p.mu.Unlock()
		}
	}
}

func (p *ProgressTracker) processResults(resultsChan <-chan ProcessImageResult) {
	defer close(p.drained)
	for result := range resultsChan {
		p.mu.Lock()
		p.processed++
		if result.Error != nil {
			p.errors++
		}
		p.mu.Unlock()
		logging.LogImageProcessed(result.Path, result.Error)
	}
}

// Stop waits for the results channel to drain and finishes the progress line
func (p *ProgressTracker) Stop() {
	<-p.drained
	if p.live {
		p.ticker.Stop()
		close(p.done)
		p.mu.Lock()
		fmt.Fprintln(p.out, p.line())
		p.mu.Unlock()
	}
}

// Counts returns the number of processed files and of files with errors
func (p *ProgressTracker) Counts() (processed, errors int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed, p.errors
}
