package router

import (
	"github.com/labstack/echo/v4"

	"dragonflychat/internal/adapter/api/handler"
	"dragonflychat/internal/adapter/api/middleware"
)

func SetupAdminRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimit echo.MiddlewareFunc, adminMiddleware *middleware.AdminMiddleware) {
	adminHandler := handler.GetAdminHandler()

	admin := e.Group("/v1/admin")
	admin.Use(authMiddleware.Authenticate, rateLimit)
	admin.Use(adminMiddleware.AdminOnly)

	admin.GET("/inbox", adminHandler.Inbox)
	admin.GET("/inbox/unread", adminHandler.UnreadCount)

	admin.GET("/users", adminHandler.Users)
	admin.GET("/users/:id/role", adminHandler.UserRole)
	admin.GET("/users/:id/messages", adminHandler.UserMessages)
	admin.GET("/users/:id/history", adminHandler.UserHistory)
	admin.POST("/users/:id/reply", adminHandler.Reply)
	admin.PUT("/users/:id/replied", adminHandler.MarkReplied)
	admin.PUT("/users/:id/resolve", adminHandler.Resolve)

	admin.PUT("/roles", adminHandler.SetRole)
}
