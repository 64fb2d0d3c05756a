package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// HealthController handles health check endpoints.
type HealthController struct {
	dbHealthChecker func() bool
	storeMode       func() entity.StoreMode
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	StoreMode string `json:"store_mode"`
	Timestamp string `json:"timestamp"`
}

// NewHealthController creates a new health controller instance.
func NewHealthController(dbHealthChecker func() bool, storeMode func() entity.StoreMode) *HealthController {
	return &HealthController{
		dbHealthChecker: dbHealthChecker,
		storeMode:       storeMode,
	}
}

// Check handles GET /health requests.
// It returns the current health status of the API and the ledger store.
func (h *HealthController) Check(c *gin.Context) {
	dbStatus := "disconnected"
	if h.dbHealthChecker != nil && h.dbHealthChecker() {
		dbStatus = "connected"
	}

	response := HealthResponse{
		Status:    "ok",
		Database:  dbStatus,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if h.storeMode != nil {
		response.StoreMode = string(h.storeMode())
	}

	c.JSON(http.StatusOK, response)
}
