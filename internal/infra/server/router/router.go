// Package router sets up the HTTP routing for the application.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/finance-tracker/ledger/internal/integration/entrypoint/controller"
	"github.com/finance-tracker/ledger/internal/integration/entrypoint/middleware"
)

// Router holds the Gin engine and controller dependencies.
type Router struct {
	engine                 *gin.Engine
	healthController       *controller.HealthController
	sessionController      *controller.SessionController
	accountController      *controller.AccountController
	carryForwardController *controller.CarryForwardController
	syncController         *controller.SyncController
	eventsController       *controller.EventsController
	syncRateLimiter        *middleware.RateLimiter
	authMiddleware         *middleware.AuthMiddleware
}

// Controllers groups the controllers served by the router.
type Controllers struct {
	Health       *controller.HealthController
	Session      *controller.SessionController
	Account      *controller.AccountController
	CarryForward *controller.CarryForwardController
	Sync         *controller.SyncController
	Events       *controller.EventsController
}

// NewRouter creates a new router instance with all dependencies.
func NewRouter(
	controllers Controllers,
	syncRateLimiter *middleware.RateLimiter,
	authMiddleware *middleware.AuthMiddleware,
) *Router {
	return &Router{
		healthController:       controllers.Health,
		sessionController:      controllers.Session,
		accountController:      controllers.Account,
		carryForwardController: controllers.CarryForward,
		syncController:         controllers.Sync,
		eventsController:       controllers.Events,
		syncRateLimiter:        syncRateLimiter,
		authMiddleware:         authMiddleware,
	}
}

// Setup configures and returns the Gin engine with all routes.
func (r *Router) Setup(environment string) *gin.Engine {
	// Set Gin mode based on environment
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else if environment == "test" {
		gin.SetMode(gin.TestMode)
	}

	// Create router with default middleware (logger and recovery)
	r.engine = gin.Default()

	r.setupHealthRoutes()
	r.setupAPIRoutes()

	return r.engine
}

// setupHealthRoutes configures health check endpoints.
func (r *Router) setupHealthRoutes() {
	r.engine.GET("/health", r.healthController.Check)
}

// setupAPIRoutes configures the main API routes. The ledger is single-user
// and local, so only profile operations require a session token; guests use
// every other route.
func (r *Router) setupAPIRoutes() {
	v1 := r.engine.Group("/api/v1")
	{
		if r.sessionController != nil {
			session := v1.Group("/session")
			{
				session.POST("/sign-in", r.sessionController.SignIn)
				if r.authMiddleware != nil {
					session.POST("/sign-out", r.authMiddleware.Authenticate(), r.sessionController.SignOut)
				}
			}

			if r.authMiddleware != nil {
				users := v1.Group("/users")
				users.Use(r.authMiddleware.Authenticate())
				{
					users.DELETE("/me", r.sessionController.DeleteProfile)
				}
			}
		}

		if r.accountController != nil {
			accounts := v1.Group("/accounts")
			{
				accounts.GET("/current", r.accountController.Current)
				accounts.POST("/:id/switch", r.accountController.Switch)
			}
		}

		if r.carryForwardController != nil {
			carryForward := v1.Group("/carry-forward")
			{
				carryForward.GET("", r.carryForwardController.Get)
				carryForward.PUT("", r.carryForwardController.SetEnabled)
				carryForward.POST("/run", r.carryForwardController.Run)
				carryForward.DELETE("/:year/:month", r.carryForwardController.DeleteEntry)
			}
		}

		if r.syncController != nil {
			sync := v1.Group("/sync")
			{
				if r.syncRateLimiter != nil {
					sync.PUT("", r.syncRateLimiter.Middleware(), r.syncController.SetEnabled)
				} else {
					sync.PUT("", r.syncController.SetEnabled)
				}
				sync.POST("/run", r.syncController.Run)
				sync.GET("/status", r.syncController.Status)
			}
		}

		if r.eventsController != nil {
			v1.GET("/events", r.eventsController.Stream)
		}
	}
}
