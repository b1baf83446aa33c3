package handlers

import (
	"outlet_control/internal/logger"
	"outlet_control/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// Minimal WebSocket connection (HTTP upgrade) — same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerOutletRoutes(api)
		h.registerPowerstripRoutes(api)
		h.registerRequestRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerOutletRoutes(api *gin.RouterGroup) {
	outlets := api.Group("/outlets")
	{
		outlets.POST("/", h.saveOutlet)
		outlets.GET("/:id", h.getOutlet)
		outlets.PUT("/:id/power", h.setOutletPower)

		outlets.POST("/:id/timer", h.startTimer)
		outlets.POST("/:id/timer/stop", h.stopTimer)
		outlets.GET("/:id/timer", h.timerStatus)
		outlets.PUT("/:id/timer/preset", h.updateTimerPreset)
	}
}

func (h *Handler) registerPowerstripRoutes(api *gin.RouterGroup) {
	strips := api.Group("/powerstrips")
	{
		strips.GET("/:id/outlets", h.listOutlets)
		// Body example: {"latitude":-7.770959,"longitude":110.377571}
		strips.POST("/:id/location", h.reportLocation)
		strips.GET("/:id/geofence", h.getGeofence)
		strips.PUT("/:id/geofence", h.updateGeofence)
		strips.POST("/:id/requests", h.openRequest)
		strips.GET("/:id/requests", h.listPendingRequests)
	}
}

func (h *Handler) registerRequestRoutes(api *gin.RouterGroup) {
	requests := api.Group("/requests")
	{
		requests.POST("/:id/confirm", h.confirmRequest)
		requests.POST("/:id/cancel", h.cancelRequest)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}
