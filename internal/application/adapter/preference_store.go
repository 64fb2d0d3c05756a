// Package adapter defines interfaces that will be implemented in the integration layer.
package adapter

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// SyncDirection names a replication watermark.
type SyncDirection string

const (
	SyncDirectionExport SyncDirection = "export"
	SyncDirectionImport SyncDirection = "import"
)

// PreferenceStore persists session state outside the ledger store so it
// survives store rebuilds.
type PreferenceStore interface {
	// CurrentAccountID returns the saved account id, or nil when unset.
	CurrentAccountID(ctx context.Context) (*uuid.UUID, error)
	SetCurrentAccountID(ctx context.Context, id uuid.UUID) error
	ClearCurrentAccountID(ctx context.Context) error

	// StoreMode returns the persisted mode, defaulting to local.
	StoreMode(ctx context.Context) (entity.StoreMode, error)
	SetStoreMode(ctx context.Context, mode entity.StoreMode) error

	// Identity returns the signed-in external identity, or "" for guests.
	Identity(ctx context.Context) (string, error)
	SetIdentity(ctx context.Context, identity string) error

	CarryForwardEnabled(ctx context.Context, accountID uuid.UUID) (bool, error)
	SetCarryForwardEnabled(ctx context.Context, accountID uuid.UUID, enabled bool) error

	// IsSuppressed reports whether carry-forward into period is suppressed for the account.
	IsSuppressed(ctx context.Context, accountID uuid.UUID, period entity.Period) (bool, error)
	Suppress(ctx context.Context, accountID uuid.UUID, period entity.Period) error
	// PruneSuppressions deletes suppression records for periods before cutoff.
	PruneSuppressions(ctx context.Context, cutoff entity.Period) (int64, error)

	// ClearAccount removes every preference scoped to the account.
	ClearAccount(ctx context.Context, accountID uuid.UUID) error

	SyncWatermark(ctx context.Context, direction SyncDirection) (time.Time, error)
	SetSyncWatermark(ctx context.Context, direction SyncDirection, at time.Time) error
}
