package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/internal/infrastructure/firebase"
)

type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*entity.Identity, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

// Authenticate verifies the bearer token and puts the caller into both the echo context
// ("uid") and the request context, where the use cases look for it. Browsers cannot set
// headers on a websocket handshake, so the token may also arrive as ?access_token=.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		idToken := c.QueryParam("access_token")

		authHeader := c.Request().Header.Get("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
			}
			idToken = parts[1]
		}
		if idToken == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is required")
		}

		identity, err := m.verifier.VerifyToken(c.Request().Context(), idToken)
		if err != nil || !identity.Authenticated() {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		}

		c.Set("uid", identity.UID)
		c.SetRequest(c.Request().WithContext(firebase.WithIdentity(c.Request().Context(), identity)))

		return next(c)
	}
}
