// Package error defines domain-specific errors for the ledger application.
package error

import "errors"

// Remote sync errors. Replicas wrap these so the sync bridge can classify failures.
var (
	// ErrRemotePartialFailure is returned when some records of a batch failed.
	ErrRemotePartialFailure = errors.New("remote partial failure")

	// ErrRemoteNetworkUnavailable is returned when the remote cannot be reached.
	ErrRemoteNetworkUnavailable = errors.New("remote network unavailable")

	// ErrRemoteQuotaExceeded is returned when the remote refuses writes for lack of space.
	ErrRemoteQuotaExceeded = errors.New("remote quota exceeded")

	// ErrRemoteAccountUnavailable is returned when no remote account is signed in or it is restricted.
	ErrRemoteAccountUnavailable = errors.New("remote account unavailable")

	// ErrRemoteServiceUnavailable is returned when the remote service is temporarily down.
	ErrRemoteServiceUnavailable = errors.New("remote service unavailable")

	// ErrRemoteNotConfigured is returned when sync is requested without a remote backend.
	ErrRemoteNotConfigured = errors.New("remote backend not configured")
)
