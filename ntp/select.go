package ntp

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Chosen is the winning sample from one sync round.
type Chosen struct {
	Sample Sample
}

// Selector runs one sync round: it queries a rotating window of candidate
// servers in parallel, rejects outliers by median offset, and elects the
// survivor with the smallest round-trip time. It is the sole
// implementation of the selection strategy this package supports;
// alternative strategies are deliberately not pluggable.
type Selector struct {
	mu        sync.Mutex
	servers   []string
	cursor    int
	maxSkewMs int64
	stats     *Stats
}

// NewSelector builds a Selector over the given fixed server list.
// maxSkewMs is the median-rejection threshold (MAX_OFFSET_SKEW_MS).
func NewSelector(servers []string, maxSkewMs int64, stats *Stats) *Selector {
	return &Selector{
		servers:   servers,
		maxSkewMs: maxSkewMs,
		stats:     stats,
	}
}

// Stats returns the stats table this selector records query outcomes
// into, so callers (the metrics exporter, the probe loop) can share it.
func (s *Selector) Stats() *Stats {
	return s.stats
}

// nextCandidates returns the next k servers from the round-robin cursor,
// wrapping around the list and advancing the cursor so every server is
// exercised across repeated calls.
func (s *Selector) nextCandidates(k int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.servers)
	if n == 0 {
		return nil
	}
	if k > n {
		k = n
	}
	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = s.servers[(s.cursor+i)%n]
	}
	s.cursor = (s.cursor + k) % n
	return out
}

// RunSync executes one sync round against k candidate servers, using
// timeout as the shared per-query deadline. It returns the winning sample
// and ok=true, or ok=false if no server replied successfully.
func (s *Selector) RunSync(ctx context.Context, k int, timeout time.Duration) (Chosen, bool) {
	candidates := s.nextCandidates(k)
	if len(candidates) == 0 {
		return Chosen{}, false
	}

	type result struct {
		sample Sample
		err    error
		server string
	}
	results := make(chan result, len(candidates))

	for _, server := range candidates {
		server := server
		go func() {
			sample, err := Query(server, timeout)
			select {
			case results <- result{sample: sample, err: err, server: server}:
			case <-ctx.Done():
			}
		}()
	}

	now := time.Now()
	samples := make([]Sample, 0, len(candidates))
	for i := 0; i < len(candidates); i++ {
		select {
		case r := <-results:
			if r.err != nil {
				s.stats.RecordFailure(r.server, now)
				continue
			}
			s.stats.RecordSuccess(r.server, r.sample.RTTMs, r.sample.OffsetMs, now)
			samples = append(samples, r.sample)
		case <-ctx.Done():
			return Chosen{}, false
		}
	}

	if len(samples) == 0 {
		return Chosen{}, false
	}

	survivors := rejectOutliers(samples, s.maxSkewMs)
	winner := electWinner(survivors)
	return Chosen{Sample: winner}, true
}

// rejectOutliers discards samples whose offset deviates from the median
// offset by more than maxSkewMs. If every sample would be discarded, the
// single sample nearest the median survives instead, so a sync round
// never returns zero survivors when it has at least one sample.
func rejectOutliers(samples []Sample, maxSkewMs int64) []Sample {
	median := medianOffset(samples)

	survivors := make([]Sample, 0, len(samples))
	for _, sm := range samples {
		if absInt64(sm.OffsetMs-median) <= maxSkewMs {
			survivors = append(survivors, sm)
		}
	}
	if len(survivors) > 0 {
		return survivors
	}

	nearest := samples[0]
	nearestDist := absInt64(nearest.OffsetMs - median)
	for _, sm := range samples[1:] {
		if d := absInt64(sm.OffsetMs - median); d < nearestDist {
			nearest, nearestDist = sm, d
		}
	}
	return []Sample{nearest}
}

// electWinner picks the survivor with the smallest RTT, breaking ties by
// lexicographically smallest server key.
func electWinner(survivors []Sample) Sample {
	winner := survivors[0]
	for _, sm := range survivors[1:] {
		switch {
		case sm.RTTMs < winner.RTTMs:
			winner = sm
		case sm.RTTMs == winner.RTTMs && sm.ServerKey < winner.ServerKey:
			winner = sm
		}
	}
	return winner
}

func medianOffset(samples []Sample) int64 {
	offsets := make([]int64, len(samples))
	for i, sm := range samples {
		offsets[i] = sm.OffsetMs
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

	n := len(offsets)
	if n%2 == 1 {
		return offsets[n/2]
	}
	return (offsets[n/2-1] + offsets[n/2]) / 2
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
