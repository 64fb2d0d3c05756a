package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	"github.com/finance-tracker/ledger/internal/infra/db/dbtest"
)

func newPrefs(t *testing.T, carryForwardDefault bool) adapter.PreferenceStore {
	t.Helper()
	database := dbtest.NewPreferenceDatabase(t, PreferenceModels()...)
	return NewPreferenceStore(database.DB(), carryForwardDefault)
}

func TestPreferenceStore_CurrentAccount(t *testing.T) {
	ctx := context.Background()
	prefs := newPrefs(t, false)

	id, err := prefs.CurrentAccountID(ctx)
	require.NoError(t, err)
	assert.Nil(t, id)

	want := uuid.New()
	require.NoError(t, prefs.SetCurrentAccountID(ctx, want))
	require.NoError(t, prefs.SetCurrentAccountID(ctx, want))

	got, err := prefs.CurrentAccountID(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)

	require.NoError(t, prefs.ClearCurrentAccountID(ctx))
	got, err = prefs.CurrentAccountID(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPreferenceStore_StoreModeDefaultsToLocal(t *testing.T) {
	ctx := context.Background()
	prefs := newPrefs(t, false)

	mode, err := prefs.StoreMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.StoreModeLocal, mode)

	require.NoError(t, prefs.SetStoreMode(ctx, entity.StoreModeLocalRemote))
	mode, err = prefs.StoreMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.StoreModeLocalRemote, mode)
}

func TestPreferenceStore_CarryForwardFlag(t *testing.T) {
	ctx := context.Background()
	accountID := uuid.New()

	tests := []struct {
		name    string
		def     bool
		set     *bool
		enabled bool
	}{
		{name: "default disabled", def: false, enabled: false},
		{name: "default enabled", def: true, enabled: true},
		{name: "explicitly enabled", def: false, set: boolPtr(true), enabled: true},
		{name: "explicitly disabled", def: true, set: boolPtr(false), enabled: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefs := newPrefs(t, tt.def)
			if tt.set != nil {
				require.NoError(t, prefs.SetCarryForwardEnabled(ctx, accountID, *tt.set))
			}
			enabled, err := prefs.CarryForwardEnabled(ctx, accountID)
			require.NoError(t, err)
			assert.Equal(t, tt.enabled, enabled)
		})
	}
}

func TestPreferenceStore_Suppressions(t *testing.T) {
	ctx := context.Background()
	prefs := newPrefs(t, false)
	a, b := uuid.New(), uuid.New()
	feb := entity.NewPeriod(2026, time.February)
	old := entity.NewPeriod(2024, time.December)

	require.NoError(t, prefs.Suppress(ctx, a, feb))
	require.NoError(t, prefs.Suppress(ctx, a, feb))
	require.NoError(t, prefs.Suppress(ctx, a, old))

	suppressed, err := prefs.IsSuppressed(ctx, a, feb)
	require.NoError(t, err)
	assert.True(t, suppressed)

	// Suppression is scoped to the account.
	suppressed, err = prefs.IsSuppressed(ctx, b, feb)
	require.NoError(t, err)
	assert.False(t, suppressed)

	pruned, err := prefs.PruneSuppressions(ctx, entity.NewPeriod(2025, time.March))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	suppressed, err = prefs.IsSuppressed(ctx, a, old)
	require.NoError(t, err)
	assert.False(t, suppressed)
}

func TestPreferenceStore_ClearAccount(t *testing.T) {
	ctx := context.Background()
	prefs := newPrefs(t, false)
	accountID := uuid.New()
	jan := entity.NewPeriod(2026, time.January)

	require.NoError(t, prefs.SetCurrentAccountID(ctx, accountID))
	require.NoError(t, prefs.SetCarryForwardEnabled(ctx, accountID, true))
	require.NoError(t, prefs.Suppress(ctx, accountID, jan))

	require.NoError(t, prefs.ClearAccount(ctx, accountID))

	id, err := prefs.CurrentAccountID(ctx)
	require.NoError(t, err)
	assert.Nil(t, id)

	enabled, err := prefs.CarryForwardEnabled(ctx, accountID)
	require.NoError(t, err)
	assert.False(t, enabled)

	suppressed, err := prefs.IsSuppressed(ctx, accountID, jan)
	require.NoError(t, err)
	assert.False(t, suppressed)
}

func TestPreferenceStore_IdentityAndWatermarks(t *testing.T) {
	ctx := context.Background()
	prefs := newPrefs(t, false)

	require.NoError(t, prefs.SetIdentity(ctx, "apple-1"))
	identity, err := prefs.Identity(ctx)
	require.NoError(t, err)
	assert.Equal(t, "apple-1", identity)

	require.NoError(t, prefs.SetIdentity(ctx, ""))
	identity, err = prefs.Identity(ctx)
	require.NoError(t, err)
	assert.Empty(t, identity)

	zero, err := prefs.SyncWatermark(ctx, adapter.SyncDirectionExport)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	at := time.Date(2026, 3, 1, 12, 0, 0, 123, time.UTC)
	require.NoError(t, prefs.SetSyncWatermark(ctx, adapter.SyncDirectionExport, at))
	got, err := prefs.SyncWatermark(ctx, adapter.SyncDirectionExport)
	require.NoError(t, err)
	assert.True(t, at.Equal(got))
}

func boolPtr(b bool) *bool { return &b }
