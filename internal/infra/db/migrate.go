package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/pressly/goose/v3"

	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SchemaVersion reports the schema version before and after migrating.
type SchemaVersion struct {
	Previous int64
	Current  int64
	Latest   int64
}

// lockedMarkers identify SQLITE_BUSY (5) and SQLITE_LOCKED (6) failures.
var lockedMarkers = []string{
	"sqlite_busy",
	"sqlite_locked",
	"database is locked",
	"database table is locked",
	"database schema is locked",
}

// isLocked reports whether err comes from another connection holding the
// database or from an expired context, rather than from the schema itself.
func isLocked(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range lockedMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Migrate brings the ledger schema up to date.
// It returns ErrSchemaMismatch when the file was written by a newer schema,
// and ErrMigrationFailed when the database cannot be migrated. Lock and
// context errors are returned without ErrMigrationFailed so callers can retry.
func (d *Database) Migrate(ctx context.Context) (*SchemaVersion, error) {
	sqlDB, err := d.db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, sqlDB, sub)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}

	sources := provider.ListSources()
	var latest int64
	if len(sources) > 0 {
		latest = sources[len(sources)-1].Version
	}

	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		if isLocked(ctx, err) {
			return nil, fmt.Errorf("reading schema version: %w", err)
		}
		return nil, fmt.Errorf("%w: reading schema version: %v", domainerror.ErrMigrationFailed, err)
	}

	if current > latest {
		return nil, fmt.Errorf("%w: database version %d, latest known %d",
			domainerror.ErrSchemaMismatch, current, latest)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		if isLocked(ctx, err) {
			return nil, fmt.Errorf("applying migrations: %w", err)
		}
		return nil, fmt.Errorf("%w: %v", domainerror.ErrMigrationFailed, err)
	}

	if len(results) > 0 {
		slog.Info("Applied schema migrations",
			"database", d.name,
			"from", current,
			"to", latest,
			"count", len(results),
		)
	}

	return &SchemaVersion{
		Previous: current,
		Current:  latest,
		Latest:   latest,
	}, nil
}
