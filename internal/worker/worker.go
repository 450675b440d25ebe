// Package worker runs periodic background syncs for every registered
// connector, serialized across instances by a distributed lock.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ait-labs/ait-connectors/internal/core/ports/driven"
	"github.com/ait-labs/ait-connectors/internal/core/ports/driving"
	"github.com/ait-labs/ait-connectors/internal/core/services"
)

const (
	defaultInterval = 15 * time.Minute

	// lockTTL outlives one expected sync by a wide margin; a crashed
	// worker's lock expires instead of wedging the connector forever.
	lockTTL = 30 * time.Minute
)

// Config wires the worker.
type Config struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Worker drives SyncAll for each connector on a fixed interval.
type Worker struct {
	connectors *services.Registry
	lock       driven.DistributedLock
	interval   time.Duration
	logger     *slog.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New creates a worker; call Start to begin syncing.
func New(connectors *services.Registry, lock driven.DistributedLock, cfg Config) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Worker{
		connectors: connectors,
		lock:       lock,
		interval:   cfg.Interval,
		logger:     cfg.Logger,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the sync loop. The first pass runs immediately.
func (w *Worker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	w.logger.Info("sync worker started", "interval", w.interval)
	w.syncAll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.syncAll(ctx)
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop halts the loop and waits for an in-flight pass to finish.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}

func (w *Worker) syncAll(ctx context.Context) {
	for _, connector := range w.connectors.All() {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		default:
		}
		w.syncOne(ctx, connector)
	}
}

func (w *Worker) syncOne(ctx context.Context, connector driving.ConnectorService) {
	name := connector.Name()
	logger := w.logger.With("connector", name)

	acquired, err := w.lock.Acquire(ctx, "sync:"+name, lockTTL)
	if err != nil {
		logger.Warn("lock acquire failed, skipping", "error", err)
		return
	}
	if !acquired {
		logger.Debug("sync already running elsewhere, skipping")
		return
	}
	defer func() {
		if err := w.lock.Release(ctx, "sync:"+name); err != nil {
			logger.Warn("lock release failed", "error", err)
		}
	}()

	results, err := connector.SyncAll(ctx)
	if err != nil {
		logger.Error("background sync failed", "error", err)
	}
	for _, r := range results {
		logger.Info("background sync",
			"kind", r.EntityKind, "fetched", r.Fetched, "saved", r.Saved,
			"skipped", r.Skipped, "duration", r.Duration)
	}
}
