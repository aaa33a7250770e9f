package router

import (
	"github.com/labstack/echo/v4"

	"dragonflychat/internal/adapter/api/handler"
	"dragonflychat/internal/adapter/api/middleware"
)

func SetupChatRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimit echo.MiddlewareFunc) {
	chatHandler := handler.GetChatHandler()

	conversations := e.Group("/v1/conversations")
	conversations.Use(authMiddleware.Authenticate, rateLimit)

	conversations.POST("", chatHandler.CreateConversation)
	conversations.GET("", chatHandler.ListConversations)
	conversations.GET("/:id", chatHandler.GetConversation)
	conversations.PATCH("/:id", chatHandler.UpdateConversation)
	conversations.DELETE("/:id", chatHandler.DeleteConversation)

	conversations.GET("/:id/messages", chatHandler.ListMessages)
	conversations.POST("/:id/messages", chatHandler.SendMessage)
	conversations.PATCH("/:id/messages/:messageId", chatHandler.UpdateMessage)

	// chatbot round trip, rate limited per user inside the use case
	conversations.POST("/:id/ask", chatHandler.Ask)
}
