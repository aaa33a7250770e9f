package router

import (
	"github.com/labstack/echo/v4"

	"dragonflychat/internal/adapter/api/handler"
	"dragonflychat/internal/adapter/api/middleware"
)

// SetupWebSocketRouter exposes every live list as a websocket subscription. Each
// connection carries exactly one subscription, named by its path.
func SetupWebSocketRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimit echo.MiddlewareFunc, adminMiddleware *middleware.AdminMiddleware) {
	wsHandler := handler.GetWebSocketHandler()

	ws := e.Group("/v1/ws")
	ws.Use(authMiddleware.Authenticate, rateLimit)

	ws.GET("/conversations", wsHandler.Conversations)
	ws.GET("/conversations/:id/messages", wsHandler.Messages)
	ws.GET("/support/messages", wsHandler.SupportMessages)

	admin := ws.Group("/admin")
	admin.Use(adminMiddleware.AdminOnly)

	admin.GET("/inbox", wsHandler.AdminInbox)
	admin.GET("/users", wsHandler.AdminUsers)
	admin.GET("/users/:id/messages", wsHandler.AdminUserMessages)
}
