// Package entity defines the core business entities for the domain layer.
package entity

// StoreMode describes the ledger store's backing configuration.
type StoreMode string

const (
	StoreModeLocal       StoreMode = "local"
	StoreModeLocalRemote StoreMode = "local+remote"
)

// IsValid reports whether the mode is known.
func (m StoreMode) IsValid() bool {
	return m == StoreModeLocal || m == StoreModeLocalRemote
}

// StoreModeFor maps the user-facing sync toggle to a store mode.
func StoreModeFor(syncEnabled bool) StoreMode {
	if syncEnabled {
		return StoreModeLocalRemote
	}
	return StoreModeLocal
}

// SyncState is the coarse sync status shown to the user.
type SyncState string

const (
	SyncStateIdle    SyncState = "idle"
	SyncStateSyncing SyncState = "syncing"
	SyncStateError   SyncState = "error"
)

// SyncStatus is the published sync status. Message is set only for SyncStateError.
type SyncStatus struct {
	State   SyncState `json:"state"`
	Message string    `json:"message,omitempty"`
}

// SyncIdle returns the idle status.
func SyncIdle() SyncStatus { return SyncStatus{State: SyncStateIdle} }

// SyncSyncing returns the syncing status.
func SyncSyncing() SyncStatus { return SyncStatus{State: SyncStateSyncing} }

// SyncError returns an error status carrying a user-facing message.
func SyncError(message string) SyncStatus {
	return SyncStatus{State: SyncStateError, Message: message}
}
