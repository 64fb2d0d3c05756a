// Package controller implements HTTP handlers for the API endpoints.
package controller

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
	"github.com/finance-tracker/ledger/internal/integration/entrypoint/dto"
)

// handleError maps domain errors to HTTP responses.
func handleError(ctx *gin.Context, err error) {
	var (
		authErr    *domainerror.AuthError
		accountErr *domainerror.AccountError
		cfErr      *domainerror.CarryForwardError
		storeErr   *domainerror.StoreError
	)

	switch {
	case errors.As(err, &authErr):
		ctx.JSON(statusForAuthError(authErr.Code), dto.ErrorResponse{Error: authErr.Message, Code: string(authErr.Code)})
	case errors.As(err, &accountErr):
		ctx.JSON(statusForAccountError(accountErr.Code), dto.ErrorResponse{Error: accountErr.Message, Code: string(accountErr.Code)})
	case errors.As(err, &cfErr):
		ctx.JSON(statusForCarryForwardError(cfErr.Code), dto.ErrorResponse{Error: cfErr.Message, Code: string(cfErr.Code)})
	case errors.As(err, &storeErr):
		ctx.JSON(statusForStoreError(storeErr.Code), dto.ErrorResponse{Error: storeErr.Message, Code: string(storeErr.Code)})
	default:
		slog.Error("Unhandled request error", "path", ctx.FullPath(), "error", err)
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "An internal error occurred",
		})
	}
}

func statusForAuthError(code domainerror.AuthErrorCode) int {
	switch code {
	case domainerror.ErrCodeMissingIdentity, domainerror.ErrCodeInvalidConfirmation:
		return http.StatusBadRequest
	case domainerror.ErrCodeUserNotFound,
		domainerror.ErrCodeInvalidToken,
		domainerror.ErrCodeExpiredToken,
		domainerror.ErrCodeMissingToken:
		return http.StatusUnauthorized
	case domainerror.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func statusForAccountError(code domainerror.AccountErrorCode) int {
	switch code {
	case domainerror.ErrCodeAccountNotFound:
		return http.StatusNotFound
	case domainerror.ErrCodeAccountNotOwned:
		return http.StatusForbidden
	case domainerror.ErrCodeInvalidAccountID:
		return http.StatusBadRequest
	case domainerror.ErrCodeSessionReset:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func statusForCarryForwardError(code domainerror.CarryForwardErrorCode) int {
	switch code {
	case domainerror.ErrCodeInvalidPeriod:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func statusForStoreError(code domainerror.StoreErrorCode) int {
	switch code {
	case domainerror.ErrCodeInvalidStoreMode:
		return http.StatusBadRequest
	case domainerror.ErrCodeStoreNotOpen, domainerror.ErrCodeStoreReloadFailed:
		return http.StatusServiceUnavailable
	case domainerror.ErrCodeTransitionTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
