package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/application/usecase/account"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
	"github.com/finance-tracker/ledger/internal/integration/entrypoint/dto"
)

// AccountController handles current account endpoints.
type AccountController struct {
	initializer *account.Initializer
}

// NewAccountController creates a new account controller instance.
func NewAccountController(initializer *account.Initializer) *AccountController {
	return &AccountController{
		initializer: initializer,
	}
}

// Current handles GET /api/v1/accounts/current requests.
func (c *AccountController) Current(ctx *gin.Context) {
	current, err := c.initializer.EnsureInitialized(ctx.Request.Context())
	if err != nil {
		handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToAccountResponse(current))
}

// Switch handles POST /api/v1/accounts/:id/switch requests.
func (c *AccountController) Switch(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid account ID",
			Code:  string(domainerror.ErrCodeInvalidAccountID),
		})
		return
	}

	switched, err := c.initializer.SwitchAccount(ctx.Request.Context(), id)
	if err != nil {
		handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToAccountResponse(switched))
}
