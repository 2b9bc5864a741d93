package engine

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/samansohani78/NTP-Time-JSON-API/metrics"
	"github.com/samansohani78/NTP-Time-JSON-API/ntp"
)

// ProbeLoop independently refreshes per-server stats out of band with
// sync decisions, so a previously-down or newly-configured server
// re-enters the sync candidate pool without waiting on the sync
// schedule.
type ProbeLoop struct {
	stats   *ntp.Stats
	metrics *metrics.Metrics
	log     *zap.Logger

	timeout time.Duration
	minGap  time.Duration
	maxGap  time.Duration
}

// NewProbeLoop builds a ProbeLoop. Each tick waits a uniformly random
// interval in [minGap, maxGap] before probing one server.
func NewProbeLoop(stats *ntp.Stats, m *metrics.Metrics, log *zap.Logger, timeout, minGap, maxGap time.Duration) *ProbeLoop {
	return &ProbeLoop{stats: stats, metrics: m, log: log, timeout: timeout, minGap: minGap, maxGap: maxGap}
}

// Run executes the probe loop until ctx is cancelled.
func (p *ProbeLoop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(randomInterval(p.minGap, p.maxGap)):
			p.tick()
		}
	}
}

func (p *ProbeLoop) tick() {
	server := p.stats.OldestSuccess(tiebreakRandom)
	if server == "" {
		return
	}

	now := time.Now()
	sample, err := ntp.Query(server, p.timeout)
	if err != nil {
		p.stats.RecordFailure(server, now)
		p.log.Warn("probe query failed", zap.String("server", server), zap.Error(err))
		return
	}
	p.stats.RecordSuccess(server, sample.RTTMs, sample.OffsetMs, now)
}

func tiebreakRandom(candidates []string) string {
	return candidates[rand.Intn(len(candidates))]
}

func randomInterval(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}
