package db_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
	"github.com/finance-tracker/ledger/internal/infra/db"
	"github.com/finance-tracker/ledger/internal/infra/db/dbtest"
)

func TestMigrate_LockedDatabaseIsNotMigrationFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	outdated := dbtest.NewOutdatedLedgerDatabase(t, path)
	require.NoError(t, outdated.Close())

	release := dbtest.HoldWriteLock(t, path)

	database, err := db.NewSQLiteConnection(path, 20*time.Millisecond)
	require.NoError(t, err)
	defer database.Close()

	_, err = database.Migrate(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, domainerror.ErrMigrationFailed), "got %v", err)
	assert.False(t, errors.Is(err, domainerror.ErrSchemaMismatch), "got %v", err)

	release()

	version, err := database.Migrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), version.Previous)
	assert.Equal(t, version.Latest, version.Current)
}

func TestMigrate_CanceledContextIsNotMigrationFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	database, err := db.NewSQLiteConnection(path, time.Second)
	require.NoError(t, err)
	defer database.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = database.Migrate(ctx)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domainerror.ErrMigrationFailed), "got %v", err)
}
