package router

import (
	"github.com/labstack/echo/v4"

	"dragonflychat/internal/adapter/api/handler"
	"dragonflychat/internal/adapter/api/middleware"
)

func SetupSupportRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimit echo.MiddlewareFunc) {
	supportHandler := handler.GetSupportHandler()

	support := e.Group("/v1/support")
	support.Use(authMiddleware.Authenticate, rateLimit)

	support.POST("/chat", supportHandler.OpenChat)
	support.GET("/messages", supportHandler.ListMessages)
	support.POST("/messages", supportHandler.SendMessage)
	support.GET("/history", supportHandler.History)
}
