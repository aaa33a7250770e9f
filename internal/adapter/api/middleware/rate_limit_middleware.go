package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"dragonflychat/pkg/logger"
)

// RateLimit limits requests per caller: the authenticated uid when present, the client
// IP otherwise.
func RateLimit(perSecond float64) echo.MiddlewareFunc {
	store := echomw.NewRateLimiterMemoryStore(rate.Limit(perSecond))

	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if uid, ok := c.Get("uid").(string); ok && uid != "" {
				return "uid:" + uid, nil
			}
			return "ip:" + c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "Unable to identify caller")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			logger.Warn("RATE LIMIT: rejected request from %s", identifier)
			return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
				"error": "Rate limit exceeded",
			})
		},
	})
}
