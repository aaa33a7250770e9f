package handler

import (
	"github.com/labstack/echo/v4"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/internal/usecase"
	"dragonflychat/pkg/logger"
	"dragonflychat/pkg/response"
)

type AdminHandler struct {
	adminChannelUseCase *usecase.AdminChannelUseCase
	roleUseCase         *usecase.RoleUseCase
}

func NewAdminHandler(adminChannelUseCase *usecase.AdminChannelUseCase, roleUseCase *usecase.RoleUseCase) *AdminHandler {
	return &AdminHandler{
		adminChannelUseCase: adminChannelUseCase,
		roleUseCase:         roleUseCase,
	}
}

type setRoleRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=user admin"`
}

type replyRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

func (h *AdminHandler) Inbox(c echo.Context) error {
	s, err := h.adminChannelUseCase.ListAdminInbox(c.Request().Context())
	return listFromStream(c, s, err)
}

func (h *AdminHandler) UnreadCount(c echo.Context) error {
	count, err := h.adminChannelUseCase.AdminUnreadCount(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]int{"unread": count})
}

func (h *AdminHandler) Reply(c echo.Context) error {
	var req replyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	msg, err := h.adminChannelUseCase.SendAdminReply(c.Request().Context(), c.Param("id"), &entity.Message{
		Content: req.Content,
	})
	if err != nil {
		logger.Error("Reply Error: to %s: %v", c.Param("id"), err)
		return response.Error(c, err)
	}
	return response.Created(c, msg)
}

func (h *AdminHandler) MarkReplied(c echo.Context) error {
	if err := h.adminChannelUseCase.MarkConversationAsReplied(c.Request().Context(), c.Param("id")); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"user_id": c.Param("id")})
}

func (h *AdminHandler) Resolve(c echo.Context) error {
	if err := h.adminChannelUseCase.CloseConversation(c.Request().Context(), c.Param("id")); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"user_id": c.Param("id")})
}

func (h *AdminHandler) UserMessages(c echo.Context) error {
	s, err := h.adminChannelUseCase.ListUserChannel(c.Request().Context(), c.Param("id"))
	return listFromStream(c, s, err)
}

func (h *AdminHandler) UserHistory(c echo.Context) error {
	s, err := h.adminChannelUseCase.ListChannelHistory(c.Request().Context(), c.Param("id"))
	return listFromStream(c, s, err)
}

func (h *AdminHandler) Users(c echo.Context) error {
	s, err := h.roleUseCase.ListUsers(c.Request().Context())
	return listFromStream(c, s, err)
}

func (h *AdminHandler) SetRole(c echo.Context) error {
	var req setRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	if err := h.roleUseCase.SetRoleByEmail(c.Request().Context(), req.Email, req.Role); err != nil {
		logger.Error("SetRole Error: %s -> %s: %v", req.Email, req.Role, err)
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"email": req.Email, "role": req.Role})
}

func (h *AdminHandler) UserRole(c echo.Context) error {
	role := h.roleUseCase.GetRole(c.Request().Context(), c.Param("id"))
	return response.Success(c, map[string]interface{}{"user_id": c.Param("id"), "role": role})
}
