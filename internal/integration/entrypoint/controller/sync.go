package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	remotesync "github.com/finance-tracker/ledger/internal/application/usecase/remote_sync"
	"github.com/finance-tracker/ledger/internal/integration/entrypoint/dto"
)

// SyncController handles remote sync endpoints.
type SyncController struct {
	bridge *remotesync.Bridge
	store  adapter.StoreController
}

// NewSyncController creates a new sync controller instance.
func NewSyncController(bridge *remotesync.Bridge, store adapter.StoreController) *SyncController {
	return &SyncController{
		bridge: bridge,
		store:  store,
	}
}

// Status handles GET /api/v1/sync/status requests.
func (c *SyncController) Status(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.ToSyncStatusResponse(c.store.Mode(), c.bridge.Status()))
}

// SetEnabled handles PUT /api/v1/sync requests. A toggle arriving while
// another transition runs is dropped and reported as busy.
func (c *SyncController) SetEnabled(ctx *gin.Context) {
	var req dto.SetSyncRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	result, err := c.bridge.SetSyncEnabled(ctx.Request.Context(), *req.Enabled)
	if err != nil {
		handleError(ctx, err)
		return
	}

	status := http.StatusOK
	if result == adapter.ModeBusy {
		status = http.StatusConflict
	}
	ctx.JSON(status, dto.SetSyncResponse{
		Result: string(result),
		Status: dto.ToSyncStatusResponse(c.store.Mode(), c.bridge.Status()),
	})
}

// Run handles POST /api/v1/sync/run requests. It runs one replication cycle
// and reports the resulting status; it does nothing while sync is off.
func (c *SyncController) Run(ctx *gin.Context) {
	if err := c.bridge.RunSync(ctx.Request.Context()); err != nil {
		handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToSyncStatusResponse(c.store.Mode(), c.bridge.Status()))
}
