// Package adapter defines interfaces that will be implemented in the integration layer.
package adapter

import (
	"context"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// ModeResult describes the outcome of a store mode change request.
type ModeResult string

const (
	// ModeSwitched means the store was rebuilt in the requested mode.
	ModeSwitched ModeResult = "switched"
	// ModeUnchanged means the store already ran in the requested mode.
	ModeUnchanged ModeResult = "unchanged"
	// ModeBusy means another transition was in flight and the request was dropped.
	ModeBusy ModeResult = "busy"
)

// StoreController controls the ledger store's backing mode.
type StoreController interface {
	// Mode returns the current store mode.
	Mode() entity.StoreMode

	// SetMode rebuilds the store in the given mode.
	SetMode(ctx context.Context, mode entity.StoreMode) (ModeResult, error)

	// Refresh notifies store observers that data changed underneath them.
	Refresh(ctx context.Context) error

	// Sync runs one replication cycle against the remote replica.
	Sync(ctx context.Context) error
}
