// Package debouncetest provides a manually advanced debounce.Clock.
package debouncetest

import (
	"sync"
	"time"

	"Storefront/internal/debounce"
)

// Clock only moves when Advance is called. Callbacks due within the advanced
// window run synchronously on the caller's goroutine, earliest first.
type Clock struct {
	mu     sync.Mutex
	now    time.Duration
	seq    uint64
	timers []*timer
}

type timer struct {
	c       *Clock
	at      time.Duration
	seq     uint64
	fn      func()
	done    bool
	stopped bool
}

func NewClock() *Clock { return &Clock{} }

func (c *Clock) AfterFunc(d time.Duration, f func()) debounce.Stopper {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &timer{c: c, at: c.now + d, seq: c.seq, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *timer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()

	if t.done || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward by d, firing every callback that becomes
// due, including ones scheduled by callbacks fired during this call.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.pruneLocked()
			c.mu.Unlock()
			return
		}
		next.done = true
		c.now = next.at
		c.mu.Unlock()

		next.fn()
	}
}

// Now reports the elapsed manual time.
func (c *Clock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Pending counts scheduled callbacks that have neither fired nor been
// stopped.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.done && !t.stopped {
			n++
		}
	}
	return n
}

func (c *Clock) nextDueLocked(target time.Duration) *timer {
	var best *timer
	for _, t := range c.timers {
		if t.done || t.stopped || t.at > target {
			continue
		}
		if best == nil || t.at < best.at || (t.at == best.at && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

func (c *Clock) pruneLocked() {
	n := 0
	for _, t := range c.timers {
		if !t.done && !t.stopped {
			c.timers[n] = t
			n++
		}
	}
	c.timers = c.timers[:n]
}
