// Package engine runs the background loops that keep the timebase
// current: the sync loop (C5), which periodically installs new anchors,
// and the probe loop (C6), which independently refreshes per-server
// health. Both are supervised goroutines owned by an Engine (C9), which
// also wires shared state and handles shutdown.
package engine

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/samansohani78/NTP-Time-JSON-API/metrics"
	"github.com/samansohani78/NTP-Time-JSON-API/ntp"
	"github.com/samansohani78/NTP-Time-JSON-API/timebase"
)

// SyncLoop periodically drives a sync round and installs the result into
// a Timebase.
type SyncLoop struct {
	selector  *ntp.Selector
	timebase  *timebase.Timebase
	readiness *timebase.Readiness
	metrics   *metrics.Metrics
	log       *zap.Logger

	k               int
	timeout         time.Duration
	interval        time.Duration
	offsetBiasMs    int64
	asymmetryBiasMs int64

	lastSyncUnix        atomic.Int64
	consecutiveFailures atomic.Int64
}

// LastSyncUnix returns the Unix timestamp (seconds) of the last
// successful sync round, or 0 if none has happened yet. Used by the
// staleness reporter rather than reading the metric back out of the
// Prometheus registry.
func (s *SyncLoop) LastSyncUnix() int64 {
	return s.lastSyncUnix.Load()
}

// NewSyncLoop builds a SyncLoop. k is the number of candidate servers
// sampled per round (SAMPLE_SERVERS_PER_SYNC); interval is the base
// period, to which ±10% jitter is applied per tick.
func NewSyncLoop(selector *ntp.Selector, tb *timebase.Timebase, ready *timebase.Readiness, m *metrics.Metrics, log *zap.Logger, k int, timeout, interval time.Duration, offsetBiasMs, asymmetryBiasMs int64) *SyncLoop {
	return &SyncLoop{
		selector:        selector,
		timebase:        tb,
		readiness:       ready,
		metrics:         m,
		log:             log,
		k:               k,
		timeout:         timeout,
		interval:        interval,
		offsetBiasMs:    offsetBiasMs,
		asymmetryBiasMs: asymmetryBiasMs,
	}
}

// Run executes the sync loop until ctx is cancelled. The first round runs
// immediately; every subsequent round waits interval ± 10% jitter.
func (s *SyncLoop) Run(ctx context.Context) {
	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(jitter(s.interval)):
			s.tick(ctx)
		}
	}
}

func (s *SyncLoop) tick(ctx context.Context) {
	defer s.publishServerUp()

	chosen, ok := s.selector.RunSync(ctx, s.k, s.timeout)
	if !ok {
		s.consecutiveFailures.Add(1)
		s.metrics.SyncErrorsTotal.Inc()
		s.metrics.ConsecutiveFailures.Set(float64(s.consecutiveFailures.Load()))
		s.log.Warn("sync round produced no usable sample")
		return
	}
	s.consecutiveFailures.Store(0)
	s.metrics.ConsecutiveFailures.Set(0)

	proposed := chosen.Sample.ServerEpochMs + s.offsetBiasMs + s.asymmetryBiasMs/2
	s.timebase.Install(proposed, time.Now())
	s.readiness.MarkReady()

	now := time.Now()
	s.lastSyncUnix.Store(now.Unix())

	s.metrics.SyncTotal.Inc()
	s.metrics.LastSyncTimestampSecs.Set(float64(now.Unix()))
	s.metrics.OffsetSecs.Set(float64(chosen.Sample.OffsetMs) / 1000)
	s.metrics.RTTSecs.Observe(float64(chosen.Sample.RTTMs) / 1000)

	s.log.Debug("sync round installed new anchor",
		zap.String("server", chosen.Sample.ServerKey),
		zap.Int64("offset_ms", chosen.Sample.OffsetMs),
		zap.Int64("rtt_ms", chosen.Sample.RTTMs),
	)
}

// publishServerUp refreshes the per-server gauges (ntp_server_up,
// ntp_server_rtt_milliseconds, ntp_server_offset_ms) for every configured
// server from the current stats snapshot, not just the round's winner:
// the probe loop keeps non-winning servers' stats fresh too, and their
// gauges need to reflect that.
func (s *SyncLoop) publishServerUp() {
	for _, entry := range s.selector.Stats().Snapshot() {
		v := 0.0
		if entry.Stat.Up {
			v = 1.0
		}
		s.metrics.ServerUp.WithLabelValues(entry.Server).Set(v)
		s.metrics.ServerRTTMs.WithLabelValues(entry.Server).Set(float64(entry.Stat.LastRTTMs))
		s.metrics.ServerOffsetMs.WithLabelValues(entry.Server).Set(float64(entry.Stat.LastOffsetMs))
	}
}

// jitter returns d scaled by a uniformly random factor in [0.9, 1.1].
func jitter(d time.Duration) time.Duration {
	factor := 0.9 + rand.Float64()*0.2
	return time.Duration(float64(d) * factor)
}
