package router

import (
	"github.com/labstack/echo/v4"

	"griya/internal/adapter/api/handler"
	"griya/internal/adapter/api/middleware"
)

// SetupCallRouter wires the call history queries plus the HTTP fallbacks
// for terminating calls without a live WebSocket.
func SetupCallRouter(e *echo.Echo, callHandler *handler.CallHandler, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware) {
	callGroup := e.Group("/v1/calls")
	callGroup.Use(authMiddleware.Authenticate)

	callGroup.GET("", callHandler.ListMyCalls)
	callGroup.POST("/:id/end", callHandler.EndCall)

	e.GET("/v1/appointments/:id/calls", callHandler.ListByAppointment, authMiddleware.Authenticate)

	adminGroup := e.Group("/v1/admin/calls")
	adminGroup.Use(authMiddleware.Authenticate)
	adminGroup.Use(adminMiddleware.AdminOnly)

	adminGroup.GET("/active", callHandler.ListActiveCalls)
	adminGroup.GET("/stats", callHandler.Stats)
	adminGroup.POST("/:id/force-end", callHandler.ForceEndCall)
}
