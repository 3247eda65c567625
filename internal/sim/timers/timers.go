// Package timers is a small one-shot deferred callback queue driven by an explicit clock.
//
// A Queue never sleeps: owners advance it from their Tick and due callbacks run inline,
// in target order, on the caller's goroutine.
package timers

import "sort"

type entry struct {
	at  float64
	seq uint64
	fn  func()
}

type Queue struct {
	now     float64
	nextSeq uint64
	pending []entry
}

// Now is the queue-local clock.
func (q *Queue) Now() float64 { return q.now }

// After schedules fn to run once the clock reaches Now()+delay.
func (q *Queue) After(delay float64, fn func()) {
	if delay < 0 {
		delay = 0
	}
	q.nextSeq++
	q.pending = append(q.pending, entry{at: q.now + delay, seq: q.nextSeq, fn: fn})
	sort.SliceStable(q.pending, func(i, j int) bool {
		if q.pending[i].at != q.pending[j].at {
			return q.pending[i].at < q.pending[j].at
		}
		return q.pending[i].seq < q.pending[j].seq
	})
}

// Advance moves the clock forward without firing anything.
func (q *Queue) Advance(dt float64) {
	if dt > 0 {
		q.now += dt
	}
}

// Fire runs every callback whose target is at or before Now. Callbacks scheduled while firing
// with zero delay run in the same call.
func (q *Queue) Fire() int {
	n := 0
	for len(q.pending) > 0 && q.pending[0].at <= q.now+epsilon {
		e := q.pending[0]
		q.pending = q.pending[1:]
		e.fn()
		n++
	}
	return n
}

func (q *Queue) Len() int { return len(q.pending) }

// Reset drops all pending callbacks and rewinds the clock.
func (q *Queue) Reset() {
	q.now = 0
	q.pending = q.pending[:0]
}

// Float accumulation of frame deltas (0.1 = 0.05+0.05) must still hit the target.
const epsilon = 1e-9
