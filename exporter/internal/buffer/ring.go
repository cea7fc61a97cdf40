package buffer

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// evictLogInterval bounds how often an overflow warning is written. A producer
// far ahead of the scraper evicts on every push.
const evictLogInterval = 10 * time.Second

// Ring is a bounded drop-oldest line queue.
type Ring struct {
	// mu is held by Drain and by an evicting Push, so an eviction only
	// happens while the ring is really full.
	mu      sync.Mutex
	lines   chan string
	dropped atomic.Uint64
	pushed  atomic.Uint64
	warn    rate.Sometimes
}

// New returns an empty Ring holding at most capacity lines.
// A capacity below 1 is raised to 1.
func New(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{
		lines: make(chan string, capacity),
		warn:  rate.Sometimes{First: 1, Interval: evictLogInterval},
	}
}

// Push appends line. If the ring is full the oldest entry is evicted first.
// Push never blocks as long as there is a single producer.
func (r *Ring) Push(line string) {
	r.pushed.Add(1)
	select {
	case r.lines <- line:
		return
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lines) == cap(r.lines) {
		// Full: drop the oldest line, keep the newest.
		<-r.lines
		n := r.dropped.Add(1)
		r.warn.Do(func() {
			slog.Warn("buffer: full, evicting oldest lines",
				"buffer_cap", cap(r.lines), "dropped_total", n)
		})
	}
	r.lines <- line
}

// Drain removes and returns up to limit lines in FIFO order. It returns fewer
// lines, possibly none, when the ring empties first. Drain never blocks.
func (r *Ring) Drain(limit int) []string {
	if limit <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.lines); n < limit {
		limit = n
	}
	out := make([]string, 0, limit)
	for len(out) < limit {
		select {
		case line := <-r.lines:
			out = append(out, line)
		default:
			return out
		}
	}
	return out
}

// Cap returns the fixed capacity.
func (r *Ring) Cap() int { return cap(r.lines) }

// Len returns the number of lines currently queued.
func (r *Ring) Len() int { return len(r.lines) }

// Dropped returns the total number of lines evicted because the ring was full.
func (r *Ring) Dropped() uint64 { return r.dropped.Load() }

// Pushed returns the total number of lines ever pushed, evicted ones included.
func (r *Ring) Pushed() uint64 { return r.pushed.Load() }
