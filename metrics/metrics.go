// Package metrics declares and registers every Prometheus series this
// service publishes. Metrics are grouped into one Metrics struct
// constructed against a caller-supplied *prometheus.Registry rather than
// the global prometheus.DefaultRegisterer, so tests can stand up an
// isolated registry per case instead of sharing global registration
// state across the test binary.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every counter, gauge, and histogram this service exports.
type Metrics struct {
	SyncTotal             prometheus.Counter
	SyncErrorsTotal       prometheus.Counter
	LastSyncTimestampSecs prometheus.Gauge
	StalenessSecs         prometheus.Gauge
	OffsetSecs            prometheus.Gauge
	RTTSecs               prometheus.Histogram
	ConsecutiveFailures   prometheus.Gauge

	ServerUp       *prometheus.GaugeVec
	ServerRTTMs    *prometheus.GaugeVec
	ServerOffsetMs *prometheus.GaugeVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPInflight        prometheus.Gauge

	BuildInfo *prometheus.GaugeVec
}

// New declares every series in namespace "ntp" (and "http" for the
// transport-layer ones; build_info has no namespace) and registers them
// against reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		SyncTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ntp", Name: "sync_total",
			Help: "Total number of sync rounds that installed a new anchor.",
		}),
		SyncErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ntp", Name: "sync_errors_total",
			Help: "Total number of sync rounds that produced no usable sample.",
		}),
		LastSyncTimestampSecs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ntp", Name: "last_sync_timestamp_seconds",
			Help: "Unix time of the last successful sync.",
		}),
		StalenessSecs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ntp", Name: "staleness_seconds",
			Help: "Seconds since the last successful sync.",
		}),
		OffsetSecs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ntp", Name: "offset_seconds",
			Help: "Offset of the most recently installed anchor, in seconds.",
		}),
		RTTSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ntp", Name: "rtt_seconds",
			Help:    "Round-trip time of winning sync queries, in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		ConsecutiveFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ntp", Name: "consecutive_failures",
			Help: "Consecutive sync rounds without a usable sample.",
		}),

		ServerUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ntp", Name: "server_up",
			Help: "1 if the server is currently considered up, else 0.",
		}, []string{"server"}),
		ServerRTTMs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ntp", Name: "server_rtt_milliseconds",
			Help: "Last observed round-trip time to the server, in milliseconds.",
		}, []string{"server"}),
		ServerOffsetMs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ntp", Name: "server_offset_ms",
			Help: "Last observed offset from the server, in milliseconds.",
		}, []string{"server"}),

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "http", Name: "requests_total",
			Help: "Total HTTP requests served.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency, in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		HTTPInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "http", Name: "inflight_requests",
			Help: "Number of HTTP requests currently being served.",
		}),

		BuildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Always 1; labeled with version and git_sha.",
		}, []string{"version", "git_sha"}),
	}

	reg.MustRegister(
		m.SyncTotal, m.SyncErrorsTotal, m.LastSyncTimestampSecs, m.StalenessSecs,
		m.OffsetSecs, m.RTTSecs, m.ConsecutiveFailures,
		m.ServerUp, m.ServerRTTMs, m.ServerOffsetMs,
		m.HTTPRequestsTotal, m.HTTPRequestDuration, m.HTTPInflight,
		m.BuildInfo,
	)
	return m
}
