package pipeline

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports document throughput for long-running stages
// to a writer, typically os.Stderr. Safe for concurrent use.
type ProgressTracker struct {
	w        io.Writer
	total    int
	interval int

	mu       sync.Mutex
	started  bool
	start    time.Time
	done     int
	reported int
}

// NewProgressTracker creates a tracker over total documents that prints
// a progress line every interval documents.
func NewProgressTracker(w io.Writer, total, interval int) *ProgressTracker {
	return &ProgressTracker{
		w:        w,
		total:    total,
		interval: interval,
	}
}

// Start resets the tracker and begins timing. Updates before Start are
// ignored.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.start = time.Now()
	p.started = true
	p.done = 0
	p.reported = 0
}

// Update sets the absolute number of documents processed so far.
func (p *ProgressTracker) Update(done int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance(done)
}

// Increment adds delta to the number of documents processed so far.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance(p.done + delta)
}

// advance moves progress to done, capped at total, and prints a line
// whenever a full interval has passed since the last one. Callers hold
// the mutex.
func (p *ProgressTracker) advance(done int) {
	if !p.started {
		return
	}

	if done > p.total {
		done = p.total
	}
	p.done = done

	if p.done-p.reported >= p.interval {
		p.report()
		p.reported = p.done
	}
}

// Finish forces progress to total and prints the final line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.done = p.total
	p.report()
	fmt.Fprintln(p.w)
}

// Elapsed returns the time since Start.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.start)
}

func (p *ProgressTracker) report() {
	elapsed := time.Since(p.start)
	rate := float64(p.done) / elapsed.Seconds()

	pct := 0.0
	if p.total > 0 {
		pct = float64(p.done) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.w, "\rProgress: %d/%d (%.1f%%) - %.1f documents/s",
		p.done, p.total, pct, rate)
}
