package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/internal/usecase"
	"dragonflychat/pkg/logger"
	"dragonflychat/pkg/response"
)

type ChatHandler struct {
	chatUseCase    *usecase.ChatUseCase
	chatbotUseCase *usecase.ChatbotUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase, chatbotUseCase *usecase.ChatbotUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase:    chatUseCase,
		chatbotUseCase: chatbotUseCase,
	}
}

type createConversationRequest struct {
	Title string `json:"title" validate:"max=200"`
}

type updateConversationRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

type sendMessageRequest struct {
	ID        string     `json:"id" validate:"omitempty,max=128"`
	Content   string     `json:"content" validate:"required,max=4000"`
	Timestamp *time.Time `json:"timestamp"`
}

func (r sendMessageRequest) toMessage() *entity.Message {
	msg := &entity.Message{
		ID:      r.ID,
		Content: r.Content,
		IsUser:  true,
	}
	if r.Timestamp != nil {
		msg.Timestamp = *r.Timestamp
	}
	return msg
}

type updateMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

type askRequest struct {
	Question string `json:"question" validate:"required,max=4000"`
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}

func (h *ChatHandler) CreateConversation(c echo.Context) error {
	var req createConversationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	id, err := h.chatUseCase.CreateConversation(c.Request().Context(), req.Title)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, map[string]string{"id": id})
}

func (h *ChatHandler) ListConversations(c echo.Context) error {
	s, err := h.chatUseCase.ListConversations(c.Request().Context())
	return listFromStream(c, s, err)
}

func (h *ChatHandler) GetConversation(c echo.Context) error {
	conv, err := h.chatUseCase.GetConversation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, conv)
}

func (h *ChatHandler) UpdateConversation(c echo.Context) error {
	var req updateConversationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	if err := h.chatUseCase.UpdateConversationTitle(c.Request().Context(), c.Param("id"), req.Title); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"id": c.Param("id"), "title": req.Title})
}

func (h *ChatHandler) DeleteConversation(c echo.Context) error {
	if err := h.chatUseCase.DeleteConversation(c.Request().Context(), c.Param("id")); err != nil {
		logger.Error("DeleteConversation Error: %v", err)
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"id": c.Param("id")})
}

func (h *ChatHandler) ListMessages(c echo.Context) error {
	s, err := h.chatUseCase.ListMessages(c.Request().Context(), c.Param("id"))
	return listFromStream(c, s, err)
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	msg, err := h.chatUseCase.SendMessage(c.Request().Context(), c.Param("id"), req.toMessage())
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, msg)
}

func (h *ChatHandler) UpdateMessage(c echo.Context) error {
	var req updateMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	err := h.chatUseCase.UpdateMessage(c.Request().Context(), c.Param("id"), c.Param("messageId"), req.Content)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"id": c.Param("messageId")})
}

func (h *ChatHandler) Ask(c echo.Context) error {
	var req askRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.chatbotUseCase.Ask(c.Request().Context(), c.Param("id"), req.Question)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, result)
}
