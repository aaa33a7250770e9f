package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

type AdminChecker interface {
	IsAdmin(ctx context.Context) bool
}

type AdminMiddleware struct {
	roles AdminChecker
}

func NewAdminMiddleware(roles AdminChecker) *AdminMiddleware {
	return &AdminMiddleware{
		roles: roles,
	}
}

// AdminOnly must run after Authenticate. The use cases re-check the role; this only
// rejects early.
func (m *AdminMiddleware) AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := c.Get("uid").(string); !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
		}

		if !m.roles.IsAdmin(c.Request().Context()) {
			return echo.NewHTTPError(http.StatusForbidden, "Admin privileges required")
		}

		return next(c)
	}
}
