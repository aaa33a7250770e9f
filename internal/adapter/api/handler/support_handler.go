package handler

import (
	"github.com/labstack/echo/v4"

	"dragonflychat/internal/usecase"
	"dragonflychat/pkg/response"
)

// SupportHandler is the end user's side of the admin channel.
type SupportHandler struct {
	adminChannelUseCase *usecase.AdminChannelUseCase
}

func NewSupportHandler(adminChannelUseCase *usecase.AdminChannelUseCase) *SupportHandler {
	return &SupportHandler{
		adminChannelUseCase: adminChannelUseCase,
	}
}

func (h *SupportHandler) OpenChat(c echo.Context) error {
	id, err := h.adminChannelUseCase.GetOrCreateAdminChat(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"id": id})
}

func (h *SupportHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	msg, err := h.adminChannelUseCase.SendUserMessageToAdmin(c.Request().Context(), req.toMessage())
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, msg)
}

func (h *SupportHandler) ListMessages(c echo.Context) error {
	s, err := h.adminChannelUseCase.ListAdminMessages(c.Request().Context())
	return listFromStream(c, s, err)
}

func (h *SupportHandler) History(c echo.Context) error {
	s, err := h.adminChannelUseCase.ListChannelHistory(c.Request().Context(), "")
	return listFromStream(c, s, err)
}
