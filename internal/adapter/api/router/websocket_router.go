package router

import (
	"github.com/labstack/echo/v4"

	"griya/internal/adapter/api/handler"
	"griya/internal/adapter/api/middleware"
)

// SetupWebSocketRouter wires the real-time endpoint. Authentication is
// optional here: public sockets may connect and query presence.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler, authMiddleware *middleware.AuthMiddleware) {
	e.GET("/ws", wsHandler.HandleConnection, authMiddleware.OptionalAuthenticate)
}
