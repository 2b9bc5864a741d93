package ntp

import (
	"testing"
	"time"
)

func TestServerStatGoesDownAfterThreeFailures(t *testing.T) {
	stats := NewStats([]string{"s1"})
	now := time.Now()

	for i := 0; i < failureThreshold-1; i++ {
		stats.RecordFailure("s1", now)
		st, _ := stats.Get("s1")
		if !st.Up && i == 0 {
			t.Fatalf("server should not be down after a single failure")
		}
	}

	stats.RecordFailure("s1", now)
	st, _ := stats.Get("s1")
	if st.Up {
		t.Fatalf("server should be down after %d consecutive failures", failureThreshold)
	}

	stats.RecordSuccess("s1", 10, 5, now)
	st, _ = stats.Get("s1")
	if !st.Up {
		t.Fatalf("server should come back up after a single success")
	}
	if st.ConsecutiveFailures != 0 {
		t.Fatalf("consecutive failures should reset to 0 after success, got %d", st.ConsecutiveFailures)
	}
}

func TestOldestSuccessPicksNeverSucceededFirst(t *testing.T) {
	stats := NewStats([]string{"s1", "s2"})
	stats.RecordSuccess("s1", 10, 5, time.Now())

	got := stats.OldestSuccess(func(candidates []string) string { return candidates[0] })
	if got != "s2" {
		t.Fatalf("OldestSuccess = %q, want %q (never succeeded)", got, "s2")
	}
}

func TestSnapshotCoversEveryServer(t *testing.T) {
	servers := []string{"s1", "s2", "s3"}
	stats := NewStats(servers)

	snap := stats.Snapshot()
	if len(snap) != len(servers) {
		t.Fatalf("snapshot has %d entries, want %d", len(snap), len(servers))
	}
}
