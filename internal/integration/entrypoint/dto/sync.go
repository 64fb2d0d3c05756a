package dto

import "github.com/finance-tracker/ledger/internal/domain/entity"

// SetSyncRequest represents the request body for toggling remote sync.
type SetSyncRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SyncStatusResponse represents the sync state in API responses.
type SyncStatusResponse struct {
	Mode    string `json:"mode"`
	State   string `json:"state"`
	Message string `json:"message,omitempty"`
}

// SetSyncResponse represents the response for toggling remote sync.
type SetSyncResponse struct {
	Result string             `json:"result"`
	Status SyncStatusResponse `json:"status"`
}

// ToSyncStatusResponse builds a SyncStatusResponse.
func ToSyncStatusResponse(mode entity.StoreMode, status entity.SyncStatus) SyncStatusResponse {
	return SyncStatusResponse{
		Mode:    string(mode),
		State:   string(status.State),
		Message: status.Message,
	}
}
