package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/finance-tracker/ledger/internal/application/usecase/account"
	"github.com/finance-tracker/ledger/internal/application/usecase/carryforward"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
	"github.com/finance-tracker/ledger/internal/integration/entrypoint/dto"
)

// CarryForwardController handles carry-forward endpoints for the current account.
type CarryForwardController struct {
	engine      *carryforward.Engine
	initializer *account.Initializer
}

// NewCarryForwardController creates a new carry-forward controller instance.
func NewCarryForwardController(engine *carryforward.Engine, initializer *account.Initializer) *CarryForwardController {
	return &CarryForwardController{
		engine:      engine,
		initializer: initializer,
	}
}

// Get handles GET /api/v1/carry-forward requests.
func (c *CarryForwardController) Get(ctx *gin.Context) {
	current, err := c.initializer.EnsureInitialized(ctx.Request.Context())
	if err != nil {
		handleError(ctx, err)
		return
	}

	enabled, err := c.engine.Enabled(ctx.Request.Context(), current.ID)
	if err != nil {
		handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.CarryForwardSettingsResponse{
		AccountID: current.ID.String(),
		Enabled:   enabled,
	})
}

// SetEnabled handles PUT /api/v1/carry-forward requests.
func (c *CarryForwardController) SetEnabled(ctx *gin.Context) {
	var req dto.SetCarryForwardRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	current, err := c.initializer.EnsureInitialized(ctx.Request.Context())
	if err != nil {
		handleError(ctx, err)
		return
	}

	if err := c.engine.SetEnabled(ctx.Request.Context(), current.ID, *req.Enabled); err != nil {
		handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.CarryForwardSettingsResponse{
		AccountID: current.ID.String(),
		Enabled:   *req.Enabled,
	})
}

// Run handles POST /api/v1/carry-forward/run requests.
func (c *CarryForwardController) Run(ctx *gin.Context) {
	current, err := c.initializer.EnsureInitialized(ctx.Request.Context())
	if err != nil {
		handleError(ctx, err)
		return
	}

	output, err := c.engine.Trigger(ctx.Request.Context(), current.ID)
	if err != nil {
		handleError(ctx, err)
		return
	}

	response := dto.CarryForwardRunResponse{
		AccountID: current.ID.String(),
		Enabled:   output.Enabled,
		Created:   make([]dto.LedgerEntryResponse, 0, len(output.Created)),
	}
	for _, entry := range output.Created {
		response.Created = append(response.Created, dto.ToLedgerEntryResponse(entry))
	}
	ctx.JSON(http.StatusOK, response)
}

// DeleteEntry handles DELETE /api/v1/carry-forward/:year/:month requests.
// The month is suppressed from then on; "deleted" tells whether an entry
// existed. Repeating the request is safe.
func (c *CarryForwardController) DeleteEntry(ctx *gin.Context) {
	year, yearErr := strconv.Atoi(ctx.Param("year"))
	month, monthErr := strconv.Atoi(ctx.Param("month"))
	if yearErr != nil || monthErr != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Year and month must be numbers",
			Code:  string(domainerror.ErrCodeInvalidPeriod),
		})
		return
	}

	current, err := c.initializer.EnsureInitialized(ctx.Request.Context())
	if err != nil {
		handleError(ctx, err)
		return
	}

	output, err := c.engine.DeleteCarryForwardEntry(ctx.Request.Context(), carryforward.DeleteEntryInput{
		AccountID: current.ID,
		Year:      year,
		Month:     month,
	})
	if err != nil {
		handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.CarryForwardDeleteResponse{
		Period:     output.Period.String(),
		Deleted:    output.Deleted,
		Suppressed: true,
	})
}
