package router

import (
	"github.com/labstack/echo/v4"

	"griya/internal/adapter/api/handler"
	"griya/internal/adapter/api/middleware"
)

// SetupChatRouter wires the appointment chat endpoints (excluding WebSocket).
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware) {
	e.POST("/v1/appointments", chatHandler.CreateAppointment, authMiddleware.Authenticate)
	e.GET("/v1/appointments", chatHandler.ListMyAppointments, authMiddleware.Authenticate)

	chatGroup := e.Group("/v1/appointments/:id")
	chatGroup.Use(authMiddleware.Authenticate)

	chatGroup.GET("", chatHandler.GetAppointment)

	// Comments
	chatGroup.POST("/comments", chatHandler.AppendComment)
	chatGroup.GET("/comments", chatHandler.ListComments)
	chatGroup.PUT("/comments/:commentId", chatHandler.EditComment)
	chatGroup.DELETE("/comments/:commentId", chatHandler.DeleteComment)
	chatGroup.POST("/comments/bulk-delete", chatHandler.BulkDeleteComments)
	chatGroup.POST("/comments/:commentId/remove-for-me", chatHandler.RemoveCommentForMe)
	chatGroup.POST("/comments/:commentId/star", chatHandler.StarComment)
	chatGroup.POST("/comments/:commentId/pin", chatHandler.PinComment)
	chatGroup.POST("/comments/:commentId/react", chatHandler.ReactToComment)
	chatGroup.PUT("/comments/read", chatHandler.MarkAllRead)
	chatGroup.GET("/comments/pinned", chatHandler.ListActivePins)
	chatGroup.GET("/comments/starred", chatHandler.ListStarred)

	// Chat lock
	chatGroup.POST("/chat-lock", chatHandler.SetChatLock)
	chatGroup.POST("/chat-lock/verify", chatHandler.VerifyChatLock)
	chatGroup.POST("/chat-lock/close", chatHandler.CloseChat)
	chatGroup.POST("/chat-lock/forgot", chatHandler.ForgotChatLock)

	// Admin-only destructive wipe with password re-verification
	adminGroup := e.Group("/v1/admin/appointments/:id")
	adminGroup.Use(authMiddleware.Authenticate)
	adminGroup.Use(adminMiddleware.AdminOnly)
	adminGroup.POST("/comments/clear", chatHandler.ClearAllComments)
}
