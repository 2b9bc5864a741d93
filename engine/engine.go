package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Engine owns the sync and probe loops and coordinates their shutdown.
// Everything it wires is plain constructor-injected state rather than a
// package-level singleton, so a test can build its own Engine against an
// isolated timebase, stats table, and metrics registry.
type Engine struct {
	sync  *SyncLoop
	probe *ProbeLoop
	log   *zap.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New builds an Engine from an already-constructed sync and probe loop.
func New(sync *SyncLoop, probe *ProbeLoop, log *zap.Logger) *Engine {
	return &Engine{sync: sync, probe: probe, log: log}
}

// SyncLoop exposes the underlying sync loop, e.g. so a caller can read
// LastSyncUnix for staleness reporting.
func (e *Engine) SyncLoop() *SyncLoop {
	return e.sync
}

// Start launches the sync and probe loops as supervised goroutines,
// derived from ctx. Stop (or ctx's own cancellation) ends both.
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		e.sync.Run(ctx)
	}()
	go func() {
		defer e.wg.Done()
		e.probe.Run(ctx)
	}()

	e.log.Info("engine started")
}

// Stop cancels both loops and blocks until they have exited.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	e.log.Info("engine stopped")
}
