// Package debounce provides a re-armable one-shot timer: arming it again
// before it fires cancels the earlier schedule, so a burst of calls collapses
// into a single callback after the last one has been quiet for the delay.
package debounce

import (
	"sync"
	"time"
)

// Stopper is the handle returned by Clock.AfterFunc.
type Stopper interface {
	Stop() bool
}

// Clock schedules callbacks. System uses the wall clock; tests substitute a
// manual one.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// System is the wall-clock Clock.
var System Clock = systemClock{}

// Timer holds at most one pending callback at a time.
//
// A callback that was already dispatched by the clock when the timer got
// re-armed or cancelled is dropped: every schedule carries a generation and
// only the latest one may run.
type Timer struct {
	mu      sync.Mutex
	clock   Clock
	delay   time.Duration
	pending Stopper
	gen     uint64
	closed  bool

	// running tracks callbacks that passed the generation check.
	running sync.WaitGroup
}

// New returns a timer with the given quiet period. A nil clock means System.
func New(delay time.Duration, clock Clock) *Timer {
	if clock == nil {
		clock = System
	}
	return &Timer{clock: clock, delay: delay}
}

// Delay reports the quiet period.
func (t *Timer) Delay() time.Duration { return t.delay }

// Arm cancels any pending callback and schedules fn to run once the delay
// has elapsed without another Arm or Cancel. fn runs without the timer's lock
// held. Arm on a closed timer does nothing.
func (t *Timer) Arm(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.stopLocked()

	gen := t.gen
	t.pending = t.clock.AfterFunc(t.delay, func() {
		t.mu.Lock()
		if t.closed || gen != t.gen {
			t.mu.Unlock()
			return
		}
		t.pending = nil
		t.running.Add(1)
		t.mu.Unlock()

		defer t.running.Done()
		fn()
	})
}

// Cancel drops the pending callback, if any, and reports whether there was
// one.
func (t *Timer) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopLocked()
}

// Pending reports whether a callback is scheduled and not yet started.
func (t *Timer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending != nil
}

// Close cancels the pending callback, waits for one already running and
// makes every later Arm a no-op. It reports whether a callback was pending.
// Close must not be called from inside a callback of the same timer.
func (t *Timer) Close() bool {
	t.mu.Lock()
	had := t.stopLocked()
	t.closed = true
	t.mu.Unlock()

	t.running.Wait()
	return had
}

func (t *Timer) stopLocked() bool {
	t.gen++
	if t.pending == nil {
		return false
	}
	t.pending.Stop()
	t.pending = nil
	return true
}
