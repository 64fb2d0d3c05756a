package controller

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finance-tracker/ledger/internal/application/usecase/account"
	"github.com/finance-tracker/ledger/internal/application/usecase/auth"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
	"github.com/finance-tracker/ledger/internal/integration/entrypoint/dto"
	"github.com/finance-tracker/ledger/internal/integration/entrypoint/middleware"
)

// SessionController handles sign-in, sign-out and profile deletion.
type SessionController struct {
	signInUseCase        *auth.SignInUserUseCase
	signOutUseCase       *auth.SignOutUserUseCase
	deleteProfileUseCase *auth.DeleteProfileUseCase
	initializer          *account.Initializer
}

// NewSessionController creates a new session controller instance.
func NewSessionController(
	signInUseCase *auth.SignInUserUseCase,
	signOutUseCase *auth.SignOutUserUseCase,
	deleteProfileUseCase *auth.DeleteProfileUseCase,
	initializer *account.Initializer,
) *SessionController {
	return &SessionController{
		signInUseCase:        signInUseCase,
		signOutUseCase:       signOutUseCase,
		deleteProfileUseCase: deleteProfileUseCase,
		initializer:          initializer,
	}
}

// SignIn handles POST /api/v1/session/sign-in requests.
func (c *SessionController) SignIn(ctx *gin.Context) {
	var req dto.SignInRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid request body",
			Code:  string(domainerror.ErrCodeMissingIdentity),
		})
		return
	}

	output, err := c.signInUseCase.Execute(ctx.Request.Context(), auth.SignInUserInput{
		AppleUserIdentifier: req.AppleUserIdentifier,
	})
	if err != nil {
		handleError(ctx, err)
		return
	}

	response := dto.SessionResponse{
		Token:     output.Token,
		ExpiresAt: output.ExpiresAt,
		User:      dto.ToUserResponse(output.User),
	}

	// The session is usable even if the account is not resolved yet; the
	// client picks it up from GET /accounts/current or the event stream.
	current, err := c.initializer.EnsureInitialized(ctx.Request.Context())
	if err != nil {
		slog.Warn("Account not resolved after sign-in", "user_id", output.User.ID, "error", err)
	}
	response.Account = dto.ToAccountResponse(current)

	status := http.StatusOK
	if output.Created {
		status = http.StatusCreated
	}
	ctx.JSON(status, response)
}

// SignOut handles POST /api/v1/session/sign-out requests.
func (c *SessionController) SignOut(ctx *gin.Context) {
	if err := c.signOutUseCase.Execute(ctx.Request.Context()); err != nil {
		handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.MessageResponse{
		Message: "Successfully signed out",
	})
}

// DeleteProfile handles DELETE /api/v1/users/me requests.
func (c *SessionController) DeleteProfile(ctx *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "User not authenticated",
			Code:  string(domainerror.ErrCodeMissingToken),
		})
		return
	}

	// The body is optional; clients may confirm in their own UI.
	var req dto.DeleteProfileRequest
	_ = ctx.ShouldBindJSON(&req)

	output, err := c.deleteProfileUseCase.Execute(ctx.Request.Context(), auth.DeleteProfileInput{
		UserID:       userID,
		Confirmation: req.Confirmation,
	})
	if err != nil {
		handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.DeleteProfileResponse{
		AccountsDeleted: output.AccountsDeleted,
		EntriesDeleted:  output.EntriesDeleted,
	})
}
