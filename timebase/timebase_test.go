package timebase

import (
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNowBeforeInstallIsNotOK(t *testing.T) {
	tb := New(true)
	if _, ok := tb.Now(); ok {
		t.Fatalf("Now() should report ok=false before any Install")
	}
}

func TestInstallThenNowAdvances(t *testing.T) {
	tb := New(true)
	start := time.Now()
	tb.Install(1_000_000, start)

	ms, ok := tb.Now()
	if !ok {
		t.Fatalf("Now() should report ok=true after Install")
	}
	if ms < 1_000_000 {
		t.Fatalf("Now() = %d, want >= 1000000", ms)
	}
}

func TestInstallDoesNotRegressUnderMonotonicClamp(t *testing.T) {
	tb := New(true)
	base := time.Now()
	tb.Install(10_000, base)

	// Let the projected time advance past the second, regressive proposal.
	later := base.Add(50 * time.Millisecond)
	before, _ := tb.Now()

	tb.Install(before-5000, later) // propose stepping backward

	after, ok := tb.Now()
	if !ok {
		t.Fatalf("Now() should still report ok=true")
	}
	if after < before {
		t.Fatalf("Now() regressed: before=%d after=%d", before, after)
	}
}

func TestInstallRegressesWhenClampDisabled(t *testing.T) {
	tb := New(false)
	base := time.Now()
	tb.Install(10_000, base)

	tb.Install(1, base) // expert mode: unconditional install

	if a := tb.current.Load(); a.ntpAnchorMs != 1 {
		t.Fatalf("anchor = %d, want the backward proposal 1 installed", a.ntpAnchorMs)
	}

	// Now() still never emits below the highest value already emitted.
	ms, ok := tb.Now()
	if !ok {
		t.Fatalf("Now() should report ok=true")
	}
	if ms < 1 {
		t.Fatalf("Now() = %d, want >= 1", ms)
	}
}

// TestNowNeverDecreasesAcrossConcurrentReaders checks the monotonicity
// property across completion order, not channel receive order: each
// call to Now() is stamped with a sequence number assigned right as it
// returns, and the assertion sorts by that sequence before checking for
// decreases. Buffered-channel delivery order is not itself the
// guarantee under test.
func TestNowNeverDecreasesAcrossConcurrentReaders(t *testing.T) {
	tb := New(true)
	tb.Install(1_000_000, time.Now())

	const readers = 50
	const readsEach = 200

	type stamped struct {
		seq int64
		ms  int64
	}

	var seq atomic.Int64
	var wg sync.WaitGroup
	results := make(chan stamped, readers*readsEach)

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < readsEach; j++ {
				ms, ok := tb.Now()
				if !ok {
					t.Errorf("Now() reported ok=false mid-run")
					return
				}
				results <- stamped{seq: seq.Add(1), ms: ms}
			}
		}()
	}
	wg.Wait()
	close(results)

	all := make([]stamped, 0, readers*readsEach)
	for s := range results {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })

	last := int64(-1)
	for _, s := range all {
		if s.ms < last {
			t.Fatalf("observed a decrease in completion-ordered Now() sequence: %d after %d", s.ms, last)
		}
		last = s.ms
	}
}

func TestAdvanceMatchesElapsedMonotonicTime(t *testing.T) {
	tb := New(true)
	start := time.Now()
	tb.Install(1_000_000, start)

	first, _ := tb.Now()

	// Let time pass with no further Install, simulating elapsed time with
	// no new sync: Now should simply advance by the elapsed monotonic ms.
	time.Sleep(20 * time.Millisecond)
	second, _ := tb.Now()

	delta := second - first
	if delta < 15 || delta > 200 {
		t.Fatalf("delta = %dms, want roughly 20ms (allowing test scheduling slack)", delta)
	}
}
