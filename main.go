package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/samansohani78/NTP-Time-JSON-API/config"
	"github.com/samansohani78/NTP-Time-JSON-API/engine"
	"github.com/samansohani78/NTP-Time-JSON-API/httpapi"
	"github.com/samansohani78/NTP-Time-JSON-API/metrics"
	"github.com/samansohani78/NTP-Time-JSON-API/ntp"
	"github.com/samansohani78/NTP-Time-JSON-API/timebase"
)

// version and gitSHA are stamped by the build via -ldflags; they feed the
// build_info metric and are otherwise unused.
var (
	version = "dev"
	gitSHA  = "unknown"
)

func newLogger(cfg config.Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = zapcore.InfoLevel
	}

	if cfg.LogFormat == "pretty" {
		zcfg := zap.NewDevelopmentConfig()
		zcfg.Level = zap.NewAtomicLevelAt(level)
		return zcfg.Build()
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer log.Sync()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	m.BuildInfo.WithLabelValues(version, gitSHA).Set(1)

	stats := ntp.NewStats(cfg.NTPServers)
	selector := ntp.NewSelector(cfg.NTPServers, cfg.MaxOffsetSkewMs, stats)
	tb := timebase.New(cfg.MonotonicOutput)
	readiness := &timebase.Readiness{}

	syncLoop := engine.NewSyncLoop(selector, tb, readiness, m, log, cfg.SampleServersPerSync, cfg.NTPTimeout, cfg.SyncInterval, cfg.OffsetBiasMs, cfg.AsymmetryBiasMs)
	probeLoop := engine.NewProbeLoop(stats, m, log, cfg.NTPTimeout, cfg.ProbeMinInterval, cfg.ProbeMaxInterval)
	eng := engine.New(syncLoop, probeLoop, log)

	state := &httpapi.State{
		Config:    cfg,
		Timebase:  tb,
		Readiness: readiness,
		Stats:     stats,
		Metrics:   m,
		Registry:  registry,
		Log:       log,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng.Start(ctx)

	go reportStaleness(ctx, log, m, eng, readiness, cfg)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      httpapi.NewRouter(state),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", zap.String("addr", cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGraceSeconds)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server did not shut down cleanly", zap.Error(err))
	}

	eng.Stop()
	return nil
}

// reportStaleness periodically updates the staleness gauge and logs at
// WARN when the timebase has gone longer than MaxStaleness without a
// successful sync. This is observability only: it never alters serving
// behavior, since the timebase keeps advancing via the local monotonic
// clock regardless of how long sync has gone without success.
func reportStaleness(ctx context.Context, log *zap.Logger, m *metrics.Metrics, eng *engine.Engine, ready *timebase.Readiness, cfg config.Config) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !ready.IsReady() {
				continue
			}
			staleness := time.Since(time.Unix(eng.SyncLoop().LastSyncUnix(), 0))
			m.StalenessSecs.Set(staleness.Seconds())
			if staleness > cfg.MaxStaleness {
				log.Warn("ntp anchor staleness exceeds threshold", zap.Duration("staleness", staleness))
			}
		}
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
