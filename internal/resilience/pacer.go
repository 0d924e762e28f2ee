package resilience

import (
	"sync"
	"time"
)

// Pacer enforces a minimum interval between outbound requests. It owns the
// single "earliest next request time" shared by every entity fetch in a
// run, replacing what would otherwise be module-level mutable state.
//
// Wait blocks at most one interval, never indefinitely.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time

	// injectable for testing
	now   func() time.Time
	sleep func(d time.Duration)
}

// NewPacer creates a pacer with the given minimum inter-request interval.
// A zero or negative interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{
		interval: interval,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Wait blocks until at least the configured interval has elapsed since the
// previous Wait returned, then claims the next slot. Safe for concurrent
// callers; they are granted slots one interval apart.
func (p *Pacer) Wait() {
	if p.interval <= 0 {
		return
	}

	p.mu.Lock()
	now := p.now()
	var delay time.Duration
	if now.Before(p.next) {
		delay = p.next.Sub(now)
		p.next = p.next.Add(p.interval)
	} else {
		p.next = now.Add(p.interval)
	}
	p.mu.Unlock()

	if delay > 0 {
		p.sleep(delay)
	}
}
