package remote

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/infra/db"
	"github.com/finance-tracker/ledger/internal/integration/persistence"
)

// Opener opens the database backing a SQL replica.
type Opener func(ctx context.Context) (*db.Database, error)

// SQLReplica keeps the ledger in a SQL database with the same tables as the
// local store. Merges are last-writer-wins, as for imports.
type SQLReplica struct {
	name string
	open Opener

	database *db.Database
}

// NewSQLReplica creates a detached replica opened through open on Attach.
func NewSQLReplica(name string, open Opener) *SQLReplica {
	return &SQLReplica{
		name: name,
		open: open,
	}
}

// Name identifies the backend in logs.
func (r *SQLReplica) Name() string {
	return r.name
}

// Attach opens the database and creates the replicated tables.
func (r *SQLReplica) Attach(ctx context.Context) error {
	database, err := r.open(ctx)
	if err != nil {
		return err
	}
	if err := database.AutoMigrate(persistence.LedgerModels()...); err != nil {
		_ = database.Close()
		return err
	}

	r.database = database
	slog.Info("SQL replica attached", "replica", r.name, "database", database.Name())
	return nil
}

// Detach closes the database.
func (r *SQLReplica) Detach(context.Context) error {
	if r.database == nil {
		return nil
	}
	database := r.database
	r.database = nil
	return database.Close()
}

// Push merges local changes into the replica.
func (r *SQLReplica) Push(ctx context.Context, changes *adapter.ChangeSet) error {
	if r.database == nil {
		return fmt.Errorf("%s replica is not attached", r.name)
	}
	written, err := persistence.NewSyncRepository(r.database.DB()).Merge(ctx, changes)
	if err != nil {
		return fmt.Errorf("failed to push to %s: %w", r.name, err)
	}
	slog.Debug("Pushed changes", "replica", r.name, "written", written, "records", changes.Len())
	return nil
}

// Pull reads every record changed after since.
func (r *SQLReplica) Pull(ctx context.Context, since time.Time) (*adapter.ChangeSet, error) {
	if r.database == nil {
		return nil, fmt.Errorf("%s replica is not attached", r.name)
	}
	changes, err := persistence.NewSyncRepository(r.database.DB()).ChangesSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to pull from %s: %w", r.name, err)
	}
	return changes, nil
}
