package handler

import (
	"github.com/labstack/echo/v4"

	"dragonflychat/internal/usecase"
	"dragonflychat/pkg/response"
)

type UserHandler struct {
	roleUseCase *usecase.RoleUseCase
}

func NewUserHandler(roleUseCase *usecase.RoleUseCase) *UserHandler {
	return &UserHandler{
		roleUseCase: roleUseCase,
	}
}

func (h *UserHandler) GetProfile(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := h.roleUseCase.GetProfile(ctx)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"user":     user,
		"is_admin": h.roleUseCase.IsAdmin(ctx),
	})
}
