package router

import (
	"github.com/labstack/echo/v4"

	"griya/internal/adapter/api/handler"
	"griya/internal/adapter/api/middleware"
)

func Setup(
	e *echo.Echo,
	chatHandler *handler.ChatHandler,
	callHandler *handler.CallHandler,
	wsHandler *handler.WebSocketHandler,
	healthHandler *handler.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
	adminMiddleware *middleware.AdminMiddleware,
) {
	SetupChatRouter(e, chatHandler, authMiddleware, adminMiddleware)
	SetupCallRouter(e, callHandler, authMiddleware, adminMiddleware)
	SetupWebSocketRouter(e, wsHandler, authMiddleware)
	SetupHealthRouter(e, healthHandler)
}

func SetupHealthRouter(e *echo.Echo, healthHandler *handler.HealthHandler) {
	e.GET("/health", healthHandler.Check)
}
