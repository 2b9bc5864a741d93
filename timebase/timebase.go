// Package timebase implements the monotonic timebase: the anchor that
// translates an NTP-derived wall-clock reading forward through the local
// monotonic clock, and the readiness latch that gates serving on it.
package timebase

import (
	"sync/atomic"
	"time"
)

// anchor is the immutable pair (ntp_anchor_ms, mono_anchor) from which
// current time is projected. Because Install only ever swaps the whole
// struct via atomic.Pointer, a reader either sees a complete old anchor
// or a complete new one, never a partial update.
type anchor struct {
	ntpAnchorMs int64
	monoAnchor  time.Time
}

// Timebase holds the current anchor and the highest value ever emitted by
// Now, and answers Now in a lock-free read path.
//
// Arithmetic note: every internal quantity is signed 64-bit milliseconds;
// Now's return value is a non-negative int64 under any realistic anchor.
// A monotonic delta larger than the range of int64 milliseconds (not
// reachable in any real process lifetime) saturates rather than
// overflowing.
type Timebase struct {
	current        atomic.Pointer[anchor]
	lastEmittedMs  atomic.Int64
	monotonicClamp bool
}

// New builds a Timebase. When monotonicClamp is true, Install never lets
// the anchor step the served time backward (§4.4); when false, every
// proposed anchor is installed unconditionally.
func New(monotonicClamp bool) *Timebase {
	return &Timebase{monotonicClamp: monotonicClamp}
}

// Install publishes serverEpochMs (already bias-adjusted by the caller)
// as the new anchor, taken at the given monotonic instant. It never
// blocks and never fails: the timebase has no notion of a failed install,
// only proposals that do or don't move the anchor forward.
func (t *Timebase) Install(serverEpochMs int64, at time.Time) {
	prev := t.current.Load()
	if prev == nil {
		t.current.Store(&anchor{ntpAnchorMs: serverEpochMs, monoAnchor: at})
		fetchMaxInt64(&t.lastEmittedMs, serverEpochMs)
		return
	}

	current := prev.ntpAnchorMs + at.Sub(prev.monoAnchor).Milliseconds()
	if serverEpochMs >= current {
		t.current.Store(&anchor{ntpAnchorMs: serverEpochMs, monoAnchor: at})
		return
	}

	if !t.monotonicClamp {
		t.current.Store(&anchor{ntpAnchorMs: serverEpochMs, monoAnchor: at})
		return
	}

	// The new proposal would step backward. Absorb the decision without
	// regressing: re-anchor at the current projected value so a later,
	// larger proposal can still overtake it.
	t.current.Store(&anchor{ntpAnchorMs: current, monoAnchor: at})
}

// Now returns the current time in epoch milliseconds, or ok=false if no
// anchor has ever been installed. This is the serving hot path: one
// atomic pointer load, one subtraction, one atomic fetch-max.
func (t *Timebase) Now() (ms int64, ok bool) {
	a := t.current.Load()
	if a == nil {
		return 0, false
	}

	candidate := a.ntpAnchorMs + time.Since(a.monoAnchor).Milliseconds()
	return fetchMaxInt64(&t.lastEmittedMs, candidate), true
}

// fetchMaxInt64 atomically raises *addr to max(*addr, v) and returns the
// resulting value, using a compare-and-swap loop since the standard
// library has no native fetch-max primitive. This is what guarantees
// monotonic emission across concurrent readers: the emitted sequence can
// only ever increase, regardless of which reader's candidate arrives
// first.
func fetchMaxInt64(addr *atomic.Int64, v int64) int64 {
	for {
		old := addr.Load()
		if v <= old {
			return old
		}
		if addr.CompareAndSwap(old, v) {
			return v
		}
	}
}
