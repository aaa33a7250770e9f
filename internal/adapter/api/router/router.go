package router

import (
	"github.com/labstack/echo/v4"

	"dragonflychat/internal/adapter/api/middleware"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware, rateLimit echo.MiddlewareFunc) {
	SetupHealthRouter(e)
	SetupAuthRouter(e, authMiddleware, rateLimit)
	SetupUserRouter(e, authMiddleware, rateLimit)
	SetupChatRouter(e, authMiddleware, rateLimit)
	SetupSupportRouter(e, authMiddleware, rateLimit)
	SetupAdminRouter(e, authMiddleware, rateLimit, adminMiddleware)
	SetupWebSocketRouter(e, authMiddleware, rateLimit, adminMiddleware)
}
