// Package httpapi renders the core engine's now_ms/is_ready contract as
// an HTTP surface: routing, JSON envelopes, and metrics and request-id
// middleware. Server startup and graceful shutdown live in package main.
package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/samansohani78/NTP-Time-JSON-API/config"
	"github.com/samansohani78/NTP-Time-JSON-API/metrics"
	"github.com/samansohani78/NTP-Time-JSON-API/ntp"
	"github.com/samansohani78/NTP-Time-JSON-API/timebase"
)

// State is the single context object threaded into every handler and
// middleware: the shared state the core offers the HTTP layer, and
// nothing more. There is deliberately no package-level global here, so
// a test can build a State around a fresh Timebase/Registry pair.
type State struct {
	Config    config.Config
	Timebase  *timebase.Timebase
	Readiness *timebase.Readiness
	Stats     *ntp.Stats
	Metrics   *metrics.Metrics
	Registry  *prometheus.Registry
	Log       *zap.Logger
}
