package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sethvargo/go-retry"

	"github.com/finance-tracker/ledger/internal/application/notify"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
	"github.com/finance-tracker/ledger/internal/infra/db"
)

func (c *Controller) openBackoff() retry.Backoff {
	return retry.WithMaxRetries(c.cfg.OpenRetries, retry.NewExponential(c.cfg.OpenRetryBase))
}

// openLocal opens and migrates the ledger database. Transient open failures
// and a locked file are retried with exponential backoff and never move the
// store aside. A database that cannot be migrated, or that was written by a
// newer schema, is moved aside and replaced by a fresh one.
func (c *Controller) openLocal(ctx context.Context) (*db.Database, error) {
	database, err := c.openMigrated(ctx)
	if err == nil {
		return database, nil
	}
	if !errors.Is(err, domainerror.ErrSchemaMismatch) && !errors.Is(err, domainerror.ErrMigrationFailed) {
		return nil, err
	}

	backupPath, moveErr := db.MoveAside(c.cfg.Path, c.now())
	if moveErr != nil {
		return nil, errors.Join(err, moveErr)
	}

	slog.Warn("Ledger store schema incompatible, moved aside and recreating",
		"path", c.cfg.Path,
		"backup_path", backupPath,
		"error", err,
	)
	c.bus.SchemaRecoveryNeeded.Publish(notify.SchemaRecoveryNeeded{
		BackupPath: backupPath,
		Reason:     err.Error(),
	})

	return c.openMigrated(ctx)
}

func (c *Controller) openMigrated(ctx context.Context) (*db.Database, error) {
	var database *db.Database

	err := retry.Do(ctx, c.openBackoff(), func(ctx context.Context) error {
		d, err := db.NewSQLiteConnection(c.cfg.Path, c.cfg.BusyTimeout)
		if err != nil {
			slog.Warn("Failed to open ledger store, retrying", "path", c.cfg.Path, "error", err)
			return retry.RetryableError(err)
		}

		if _, err := d.Migrate(ctx); err != nil {
			_ = d.Close()
			if errors.Is(err, domainerror.ErrSchemaMismatch) || errors.Is(err, domainerror.ErrMigrationFailed) {
				return err
			}
			slog.Warn("Ledger store busy during migration, retrying", "path", c.cfg.Path, "error", err)
			return retry.RetryableError(err)
		}

		database = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return database, nil
}
