// Package search holds the text query typed by the user. The raw value
// follows every keystroke; the settled value only moves once the raw value
// has been left alone for the quiet period.
package search

import (
	"sync"
	"time"

	"Storefront/internal/debounce"
	"Storefront/pkg/kit"
)

const DefaultQuietPeriod = 300 * time.Millisecond

type Options struct {
	Quiet   time.Duration
	Clock   debounce.Clock
	Metrics *kit.CoreMetrics

	// OnSettle is called, outside any lock, each time a quiet period ends
	// with a settled value different from the previous one. Reset does not
	// call it.
	OnSettle func(settled string)
}

type Query struct {
	mu      sync.Mutex
	raw     string
	settled string
	version uint64

	timer    *debounce.Timer
	metrics  *kit.CoreMetrics
	onSettle func(string)
}

func NewQuery(opts Options) *Query {
	if opts.Quiet <= 0 {
		opts.Quiet = DefaultQuietPeriod
	}
	return &Query{
		timer:    debounce.New(opts.Quiet, opts.Clock),
		metrics:  opts.Metrics,
		onSettle: opts.OnSettle,
	}
}

// Update records a keystroke and reports whether the raw value changed. The
// settled value follows once no further Update or Reset arrives within the
// quiet period.
func (q *Query) Update(raw string) bool {
	q.mu.Lock()
	changed := q.raw != raw
	q.raw = raw
	q.mu.Unlock()

	q.timer.Arm(q.settle)
	return changed
}

// Reset clears both values and drops any pending settlement. It reports
// whether either value changed.
func (q *Query) Reset() bool {
	q.timer.Cancel()

	q.mu.Lock()
	defer q.mu.Unlock()

	changed := q.raw != ""
	q.raw = ""
	if q.settled == "" {
		return changed
	}
	q.settled = ""
	q.version++
	return true
}

func (q *Query) Raw() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.raw
}

func (q *Query) Settled() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.settled
}

// Version changes exactly when the settled value does.
func (q *Query) Version() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.version
}

// Snapshot returns the settled value together with its version.
func (q *Query) Snapshot() (settled string, version uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.settled, q.version
}

// Pending reports whether a settlement is scheduled.
func (q *Query) Pending() bool { return q.timer.Pending() }

// Close drops the pending settlement and stops future ones.
func (q *Query) Close() { q.timer.Close() }

func (q *Query) settle() {
	q.mu.Lock()
	if q.settled == q.raw {
		q.mu.Unlock()
		return
	}
	q.settled = q.raw
	q.version++
	settled := q.settled
	q.mu.Unlock()

	q.metrics.SearchSettled()
	if q.onSettle != nil {
		q.onSettle(settled)
	}
}
