package store

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
	"github.com/finance-tracker/ledger/internal/integration/persistence"
)

// Sync runs one replication cycle when the store runs in local+remote mode:
// attach the replica if needed, export local changes, then import remote
// changes last-writer-wins. A cycle already in progress makes this a no-op.
func (c *Controller) Sync(ctx context.Context) error {
	if !c.syncMu.TryLock() {
		slog.Debug("Sync cycle already running, skipping")
		return nil
	}
	defer c.syncMu.Unlock()

	events, err := c.syncPinned(ctx)
	c.dispatch(ctx, events)
	return err
}

func (c *Controller) syncPinned(ctx context.Context) ([]entity.RemoteEvent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.mode != entity.StoreModeLocalRemote {
		return nil, nil
	}
	if c.database == nil {
		return nil, domainerror.ErrStoreNotOpen
	}

	var events []entity.RemoteEvent

	replica := c.currentReplica()
	if replica == nil {
		c.attachLocked(ctx, &events)
		if replica = c.currentReplica(); replica == nil {
			return events, nil
		}
	}

	conn := c.database.DB()

	exported, err := c.export(ctx, conn, replica)
	if err != nil {
		events = append(events, c.event(entity.RemoteExportFailed, 0, err))
	} else {
		events = append(events, c.event(entity.RemoteExportSucceeded, exported, nil))
	}

	imported, err := c.importChanges(ctx, conn, replica)
	if err != nil {
		events = append(events, c.event(entity.RemoteImportFailed, 0, err))
	} else {
		events = append(events, c.event(entity.RemoteImportSucceeded, imported, nil))
	}

	return events, nil
}

// export pushes local changes made after the export watermark.
func (c *Controller) export(ctx context.Context, conn *gorm.DB, replica adapter.RemoteReplica) (int, error) {
	since, err := c.prefs.SyncWatermark(ctx, adapter.SyncDirectionExport)
	if err != nil {
		return 0, err
	}

	changes, err := persistence.NewSyncRepository(conn).ChangesSince(ctx, since)
	if err != nil {
		return 0, err
	}
	if changes.Len() == 0 {
		return 0, nil
	}

	if err := replica.Push(ctx, changes); err != nil {
		return 0, fmt.Errorf("failed to push %d changes to %s: %w", changes.Len(), replica.Name(), err)
	}

	if err := c.prefs.SetSyncWatermark(ctx, adapter.SyncDirectionExport, changes.Latest()); err != nil {
		return 0, err
	}

	slog.Info("Exported changes to remote replica", "replica", replica.Name(), "records", changes.Len())
	return changes.Len(), nil
}

// importChanges merges remote changes made after the import watermark.
func (c *Controller) importChanges(ctx context.Context, conn *gorm.DB, replica adapter.RemoteReplica) (int, error) {
	since, err := c.prefs.SyncWatermark(ctx, adapter.SyncDirectionImport)
	if err != nil {
		return 0, err
	}

	changes, err := replica.Pull(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("failed to pull changes from %s: %w", replica.Name(), err)
	}
	if changes.Len() == 0 {
		return 0, nil
	}

	written, err := persistence.NewSyncRepository(conn).Merge(ctx, changes)
	if err != nil {
		return 0, err
	}

	if err := c.prefs.SetSyncWatermark(ctx, adapter.SyncDirectionImport, changes.Latest()); err != nil {
		return 0, err
	}

	slog.Info("Imported changes from remote replica",
		"replica", replica.Name(),
		"records", changes.Len(),
		"written", written,
	)
	return written, nil
}

var (
	_ adapter.StoreController = (*Controller)(nil)
	_ persistence.Pinner      = (*Controller)(nil)
	_ persistence.Connection  = (*Controller)(nil)
)
