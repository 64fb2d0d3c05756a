// Package remotesync contains the use cases bridging remote replica events to the ledger store.
package remotesync

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"

	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
)

// statusMessages contains the user-facing message for each error class.
var statusMessages = map[entity.RemoteErrorClass]string{
	entity.RemoteErrorPartialFailure:     "Some changes could not be synced and will be retried.",
	entity.RemoteErrorNetworkUnavailable: "Sync is waiting for a network connection.",
	entity.RemoteErrorQuotaExceeded:      "Your sync storage is full. Free up space to resume syncing.",
	entity.RemoteErrorAccountUnavailable: "Sign in to your sync account to keep your data in sync.",
	entity.RemoteErrorServiceUnavailable: "The sync service is temporarily unavailable.",
	entity.RemoteErrorOther:              "Sync was turned off after an unexpected error. Your data is safe on this device.",
}

// StatusMessage returns the user-facing message for an error class.
func StatusMessage(class entity.RemoteErrorClass) string {
	if msg, ok := statusMessages[class]; ok {
		return msg
	}
	return statusMessages[entity.RemoteErrorOther]
}

func newRemoteError(class entity.RemoteErrorClass, transient bool, err error) *entity.RemoteError {
	return &entity.RemoteError{
		Class:     class,
		Message:   err.Error(),
		Transient: transient,
	}
}

// redisPrefixClasses maps Redis error prefixes to error classes.
var redisPrefixClasses = map[string]entity.RemoteErrorClass{
	"NOAUTH":      entity.RemoteErrorAccountUnavailable,
	"WRONGPASS":   entity.RemoteErrorAccountUnavailable,
	"NOPERM":      entity.RemoteErrorAccountUnavailable,
	"OOM":         entity.RemoteErrorQuotaExceeded,
	"LOADING":     entity.RemoteErrorServiceUnavailable,
	"BUSY":        entity.RemoteErrorServiceUnavailable,
	"TRYAGAIN":    entity.RemoteErrorServiceUnavailable,
	"MASTERDOWN":  entity.RemoteErrorServiceUnavailable,
	"CLUSTERDOWN": entity.RemoteErrorServiceUnavailable,
}

// classifyPostgres maps a SQLSTATE code to an error class.
func classifyPostgres(code string) (entity.RemoteErrorClass, bool) {
	switch {
	case code == "28000", code == "28P01", code == "42501":
		return entity.RemoteErrorAccountUnavailable, true
	case code == "53100", code == "53200":
		return entity.RemoteErrorQuotaExceeded, true
	case code == "53300", strings.HasPrefix(code, "57P"):
		return entity.RemoteErrorServiceUnavailable, true
	case strings.HasPrefix(code, "08"):
		return entity.RemoteErrorNetworkUnavailable, true
	}
	return "", false
}

// transientClass reports whether an error class is retried by the backend.
func transientClass(class entity.RemoteErrorClass) bool {
	switch class {
	case entity.RemoteErrorPartialFailure, entity.RemoteErrorNetworkUnavailable, entity.RemoteErrorServiceUnavailable:
		return true
	}
	return false
}

// classifyTyped classifies errors carrying a driver or network type.
func classifyTyped(err error) (entity.RemoteErrorClass, bool) {
	var redisErr redis.Error
	if errors.As(err, &redisErr) {
		prefix, _, _ := strings.Cut(redisErr.Error(), " ")
		if class, ok := redisPrefixClasses[prefix]; ok {
			return class, true
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if class, ok := classifyPostgres(pgErr.Code); ok {
			return class, true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return entity.RemoteErrorNetworkUnavailable, true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, redis.ErrClosed) {
		return entity.RemoteErrorNetworkUnavailable, true
	}
	return "", false
}

// containsAny reports whether s contains one of the markers.
func containsAny(s string, markers ...string) bool {
	for _, marker := range markers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// ClassifyRemoteError converts a replica error to a RemoteError with a class
// and transient flag. Unrecognised errors are permanent.
func ClassifyRemoteError(err error) *entity.RemoteError {
	if err == nil {
		return nil
	}

	// Sentinels wrapped by the replicas take precedence over everything else.
	switch {
	case errors.Is(err, domainerror.ErrRemotePartialFailure):
		return newRemoteError(entity.RemoteErrorPartialFailure, true, err)
	case errors.Is(err, domainerror.ErrRemoteQuotaExceeded):
		return newRemoteError(entity.RemoteErrorQuotaExceeded, false, err)
	case errors.Is(err, domainerror.ErrRemoteAccountUnavailable):
		return newRemoteError(entity.RemoteErrorAccountUnavailable, false, err)
	case errors.Is(err, domainerror.ErrRemoteServiceUnavailable):
		return newRemoteError(entity.RemoteErrorServiceUnavailable, true, err)
	case errors.Is(err, domainerror.ErrRemoteNetworkUnavailable):
		return newRemoteError(entity.RemoteErrorNetworkUnavailable, true, err)
	case errors.Is(err, domainerror.ErrRemoteNotConfigured):
		return newRemoteError(entity.RemoteErrorOther, false, err)
	}

	// Check for timeout/cancellation (context errors)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return newRemoteError(entity.RemoteErrorNetworkUnavailable, true, err)
	}

	if class, ok := classifyTyped(err); ok {
		return newRemoteError(class, transientClass(class), err)
	}

	// Untyped errors fall back to message matching. Network comes before
	// auth so wrapper text cannot turn a dropped connection into a sign-in
	// prompt.
	errStr := strings.ToLower(err.Error())

	if containsAny(errStr, "quota", "maxmemory", "out of memory", "disk full", "no space left") {
		return newRemoteError(entity.RemoteErrorQuotaExceeded, false, err)
	}

	if containsAny(errStr, "connection refused", "connection reset", "broken pipe",
		"no route to host", "network is unreachable", "i/o timeout", "dial tcp", "unexpected eof") {
		return newRemoteError(entity.RemoteErrorNetworkUnavailable, true, err)
	}

	if containsAny(errStr, "noauth", "wrongpass", "password authentication failed",
		"unauthorized", "permission denied") {
		return newRemoteError(entity.RemoteErrorAccountUnavailable, false, err)
	}

	if containsAny(errStr, "loading", "too many connections", "tryagain", "service unavailable") {
		return newRemoteError(entity.RemoteErrorServiceUnavailable, true, err)
	}

	return newRemoteError(entity.RemoteErrorOther, false, err)
}
