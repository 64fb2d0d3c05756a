// Package worker runs the background loops that keep the ledger current.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// SyncRunner runs one remote replication cycle.
type SyncRunner interface {
	RunSync(ctx context.Context) error
}

// SyncWorker replicates the ledger on a fixed interval while sync is enabled.
type SyncWorker struct {
	runner   SyncRunner
	interval time.Duration
}

// NewSyncWorker creates a new sync worker.
func NewSyncWorker(runner SyncRunner, interval time.Duration) *SyncWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SyncWorker{
		runner:   runner,
		interval: interval,
	}
}

// Start begins the worker loop. It blocks until the context is cancelled.
func (w *SyncWorker) Start(ctx context.Context) {
	slog.Info("Sync worker started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sync worker shutting down")
			return
		case <-ticker.C:
			// Failures are reported through the bridge status and events.
			if err := w.runner.RunSync(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("Remote sync cycle failed", "error", err)
			}
		}
	}
}
