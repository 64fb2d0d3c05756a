package remotesync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/application/notify"
	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// errTransitionBusy is retried while another store transition is running.
var errTransitionBusy = errors.New("store transition in progress")

// Bridge routes remote replica lifecycle events to the ledger store and
// keeps the published sync status.
type Bridge struct {
	store        adapter.StoreController
	bus          *notify.Bus
	disableRetry func() retry.Backoff

	mu     sync.RWMutex
	status entity.SyncStatus
	// seq counts status updates, including repeats of the same status.
	seq uint64
}

// NewBridge creates a new sync event bridge.
func NewBridge(store adapter.StoreController, bus *notify.Bus) *Bridge {
	return &Bridge{
		store: store,
		bus:   bus,
		disableRetry: func() retry.Backoff {
			return retry.WithMaxRetries(5, retry.NewConstant(200*time.Millisecond))
		},
		status: entity.SyncIdle(),
	}
}

// Status returns the current sync status.
func (b *Bridge) Status() entity.SyncStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

func (b *Bridge) setStatus(status entity.SyncStatus) {
	b.mu.Lock()
	changed := b.status != status
	b.status = status
	b.seq++
	b.mu.Unlock()

	if changed {
		b.bus.SyncStatusChanged.Publish(status)
	}
}

// Handle applies a remote lifecycle event.
func (b *Bridge) Handle(ctx context.Context, event entity.RemoteEvent) {
	logger := slog.With("event", string(event.Kind), "records", event.Records)

	if !event.Kind.IsValid() {
		logger.Warn("Ignoring unknown remote event")
		return
	}

	if !event.Kind.IsFailure() {
		if event.Kind == entity.RemoteImportSucceeded {
			if err := b.store.Refresh(ctx); err != nil {
				logger.Error("Failed to refresh store after import", "error", err)
			}
		}
		logger.Debug("Remote event succeeded")
		b.setStatus(entity.SyncIdle())
		return
	}

	remoteErr := event.Error
	if remoteErr == nil {
		remoteErr = &entity.RemoteError{Class: entity.RemoteErrorOther, Message: "unspecified remote failure", Transient: true}
	}
	logger = logger.With("class", string(remoteErr.Class), "transient", remoteErr.Transient, "error", remoteErr.Message)

	switch remoteErr.Class {
	case entity.RemoteErrorAccountUnavailable, entity.RemoteErrorQuotaExceeded:
		logger.Warn("Remote sync needs user action")
		b.setStatus(entity.SyncError(StatusMessage(remoteErr.Class)))

	case entity.RemoteErrorOther:
		if remoteErr.Transient {
			logger.Warn("Remote sync failed, backend will retry")
			return
		}
		logger.Error("Remote sync failed permanently, disabling sync")
		if err := b.disableSync(ctx); err != nil {
			logger.Error("Failed to disable sync", "error", err)
		}
		b.setStatus(entity.SyncError(StatusMessage(remoteErr.Class)))

	default:
		logger.Warn("Remote sync failed, backend will retry")
	}
}

// disableSync switches the store to local, waiting out a concurrent transition.
func (b *Bridge) disableSync(ctx context.Context) error {
	return retry.Do(ctx, b.disableRetry(), func(ctx context.Context) error {
		result, err := b.store.SetMode(ctx, entity.StoreModeLocal)
		if err != nil {
			return err
		}
		if result == adapter.ModeBusy {
			return retry.RetryableError(errTransitionBusy)
		}
		return nil
	})
}

// failedSince reports whether an error status was published after the
// status sequence reached seq.
func (b *Bridge) failedSince(seq uint64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seq != seq && b.status.State == entity.SyncStateError
}

// SetSyncEnabled turns remote sync on or off. Events dispatched by the
// transition are handled before SetMode returns, so an error status they
// publish is kept.
func (b *Bridge) SetSyncEnabled(ctx context.Context, enabled bool) (adapter.ModeResult, error) {
	b.mu.RLock()
	seq := b.seq
	b.mu.RUnlock()

	result, err := b.store.SetMode(ctx, entity.StoreModeFor(enabled))
	if err != nil {
		return result, err
	}

	if result == adapter.ModeSwitched && !b.failedSince(seq) {
		if enabled {
			b.setStatus(entity.SyncSyncing())
		} else {
			b.setStatus(entity.SyncIdle())
		}
	}
	return result, nil
}

// RunSync runs one replication cycle when sync is enabled. The resulting
// lifecycle events settle the status.
func (b *Bridge) RunSync(ctx context.Context) error {
	if b.store.Mode() != entity.StoreModeLocalRemote {
		return nil
	}

	if b.Status().State != entity.SyncStateError {
		b.setStatus(entity.SyncSyncing())
	}
	return b.store.Sync(ctx)
}
