package router

import (
	"github.com/labstack/echo/v4"

	"dragonflychat/internal/adapter/api/handler"
	"dragonflychat/internal/adapter/api/middleware"
)

func SetupAuthRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimit echo.MiddlewareFunc) {
	authHandler := handler.GetAuthHandler()

	auth := e.Group("/v1/auth")
	auth.Use(authMiddleware.Authenticate, rateLimit)

	auth.POST("/session", authHandler.StartSession)
}
