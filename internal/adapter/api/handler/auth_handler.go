package handler

import (
	"github.com/labstack/echo/v4"

	"dragonflychat/internal/usecase"
	"dragonflychat/pkg/logger"
	"dragonflychat/pkg/response"
)

type AuthHandler struct {
	roleUseCase *usecase.RoleUseCase
}

func NewAuthHandler(roleUseCase *usecase.RoleUseCase) *AuthHandler {
	return &AuthHandler{
		roleUseCase: roleUseCase,
	}
}

// StartSession is called by clients right after sign-in. It creates the profile on the
// first call and is a read-only no-op afterwards.
func (h *AuthHandler) StartSession(c echo.Context) error {
	ctx := c.Request().Context()

	created, err := h.roleUseCase.EnsureUserExists(ctx)
	if err != nil {
		logger.Error("StartSession Error: %v", err)
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"created":  created,
		"role":     h.roleUseCase.GetRole(ctx, ""),
		"is_admin": h.roleUseCase.IsAdmin(ctx),
	})
}
