// Package entity defines the core business entities for the domain layer.
package entity

import "time"

// RemoteEventKind identifies a remote backend lifecycle event.
type RemoteEventKind string

const (
	RemoteSetupSucceeded  RemoteEventKind = "setupSucceeded"
	RemoteSetupFailed     RemoteEventKind = "setupFailed"
	RemoteImportSucceeded RemoteEventKind = "importSucceeded"
	RemoteImportFailed    RemoteEventKind = "importFailed"
	RemoteExportSucceeded RemoteEventKind = "exportSucceeded"
	RemoteExportFailed    RemoteEventKind = "exportFailed"
)

// IsFailure reports whether the event kind reports a failure.
func (k RemoteEventKind) IsFailure() bool {
	return k == RemoteSetupFailed || k == RemoteImportFailed || k == RemoteExportFailed
}

// IsValid reports whether the kind is known.
func (k RemoteEventKind) IsValid() bool {
	switch k {
	case RemoteSetupSucceeded, RemoteSetupFailed,
		RemoteImportSucceeded, RemoteImportFailed,
		RemoteExportSucceeded, RemoteExportFailed:
		return true
	}
	return false
}

// RemoteErrorClass classifies a remote backend error.
type RemoteErrorClass string

const (
	RemoteErrorPartialFailure     RemoteErrorClass = "partialFailure"
	RemoteErrorNetworkUnavailable RemoteErrorClass = "networkUnavailable"
	RemoteErrorQuotaExceeded      RemoteErrorClass = "quotaExceeded"
	RemoteErrorAccountUnavailable RemoteErrorClass = "accountUnavailable"
	RemoteErrorServiceUnavailable RemoteErrorClass = "serviceUnavailable"
	RemoteErrorOther              RemoteErrorClass = "other"
)

// RemoteError is the classified error attached to a failed remote event.
type RemoteError struct {
	Class     RemoteErrorClass `json:"class"`
	Message   string           `json:"message"`
	Transient bool             `json:"transient"`
}

// RemoteEvent is a lifecycle event reported by the remote backend.
type RemoteEvent struct {
	Kind       RemoteEventKind `json:"kind"`
	Error      *RemoteError    `json:"error,omitempty"`
	Records    int             `json:"records,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}
