package timebase

import "sync/atomic"

// Readiness is a one-way latch: false until the first successful sync,
// true forever after.
type Readiness struct {
	ready atomic.Bool
}

// MarkReady flips the latch to true. Safe to call more than once.
func (r *Readiness) MarkReady() {
	r.ready.Store(true)
}

// IsReady reports whether the latch has ever been flipped.
func (r *Readiness) IsReady() bool {
	return r.ready.Load()
}
