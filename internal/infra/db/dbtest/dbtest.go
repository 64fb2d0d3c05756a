// Package dbtest provides throwaway SQLite databases for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/finance-tracker/ledger/internal/infra/db"
)

// NewLedgerDatabase opens a migrated ledger database in a temporary directory.
func NewLedgerDatabase(t testing.TB) *db.Database {
	t.Helper()

	database, err := db.NewSQLiteConnection(filepath.Join(t.TempDir(), "ledger.db"), 5*time.Second)
	if err != nil {
		t.Fatalf("failed to open ledger database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if _, err := database.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate ledger database: %v", err)
	}
	return database
}

// NewPreferenceDatabase opens a preference database with its tables created.
func NewPreferenceDatabase(t testing.TB, models ...interface{}) *db.Database {
	t.Helper()

	database, err := db.NewSQLiteConnection(filepath.Join(t.TempDir(), "preferences.db"), 5*time.Second)
	if err != nil {
		t.Fatalf("failed to open preference database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := database.AutoMigrate(models...); err != nil {
		t.Fatalf("failed to migrate preference database: %v", err)
	}
	return database
}

// NewOutdatedLedgerDatabase creates a ledger database at path that still
// needs the latest migration.
func NewOutdatedLedgerDatabase(t testing.TB, path string) *db.Database {
	t.Helper()

	database, err := db.NewSQLiteConnection(path, 5*time.Second)
	if err != nil {
		t.Fatalf("failed to open ledger database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if _, err := database.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate ledger database: %v", err)
	}
	for _, stmt := range []string{
		"DROP INDEX idx_ledger_entries_carry_over_period",
		"DELETE FROM goose_db_version WHERE version_id = 2",
	} {
		if err := database.DB().Exec(stmt).Error; err != nil {
			t.Fatalf("failed to roll back latest migration: %v", err)
		}
	}
	return database
}

// HoldWriteLock opens a second connection to path and keeps a write
// transaction open on it until release is called.
func HoldWriteLock(t testing.TB, path string) (release func()) {
	t.Helper()
	ctx := context.Background()

	database, err := db.NewSQLiteConnection(path, time.Second)
	if err != nil {
		t.Fatalf("failed to open lock holder: %v", err)
	}
	sqlDB, err := database.DB().DB()
	if err != nil {
		t.Fatalf("failed to get lock holder sql.DB: %v", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		t.Fatalf("failed to get lock holder connection: %v", err)
	}
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		t.Fatalf("failed to take write lock: %v", err)
	}

	var once sync.Once
	release = func() {
		once.Do(func() {
			_, _ = conn.ExecContext(ctx, "ROLLBACK")
			_ = conn.Close()
			_ = database.Close()
		})
	}
	t.Cleanup(release)
	return release
}
