package handler

import (
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	ws "dragonflychat/internal/infrastructure/websocket"
	"dragonflychat/internal/usecase"
	"dragonflychat/pkg/logger"
	"dragonflychat/pkg/response"
	"dragonflychat/pkg/stream"
)

type WebSocketHandler struct {
	wsManager           *ws.Manager
	chatUseCase         *usecase.ChatUseCase
	adminChannelUseCase *usecase.AdminChannelUseCase
	roleUseCase         *usecase.RoleUseCase
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func NewWebSocketHandler(
	wsManager *ws.Manager,
	chatUseCase *usecase.ChatUseCase,
	adminChannelUseCase *usecase.AdminChannelUseCase,
	roleUseCase *usecase.RoleUseCase,
) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:           wsManager,
		chatUseCase:         chatUseCase,
		adminChannelUseCase: adminChannelUseCase,
		roleUseCase:         roleUseCase,
	}
}

// serve upgrades the connection and forwards s until the client leaves. It blocks for
// the lifetime of the socket so the request context, which carries the caller, stays
// alive.
func serve[T any](h *WebSocketHandler, c echo.Context, topic string, s *stream.Stream[T], err error) error {
	if err != nil {
		return response.Error(c, err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.Close()
		logger.Warn("websocket upgrade failed for %s: %v", topic, err)
		return nil
	}

	uid, _ := c.Get("uid").(string)
	client := ws.NewClient(conn, uid, topic)
	if !h.wsManager.Register(client) {
		s.Close()
		conn.Close()
		return nil
	}

	go client.WritePump()
	go client.ReadPump(h.wsManager)
	ws.Forward(client, s)
	return nil
}

func (h *WebSocketHandler) Conversations(c echo.Context) error {
	s, err := h.chatUseCase.ListConversations(c.Request().Context())
	return serve(h, c, "conversations", s, err)
}

func (h *WebSocketHandler) Messages(c echo.Context) error {
	s, err := h.chatUseCase.ListMessages(c.Request().Context(), c.Param("id"))
	return serve(h, c, "conversations/"+c.Param("id")+"/messages", s, err)
}

func (h *WebSocketHandler) SupportMessages(c echo.Context) error {
	s, err := h.adminChannelUseCase.ListAdminMessages(c.Request().Context())
	return serve(h, c, "support/messages", s, err)
}

func (h *WebSocketHandler) AdminInbox(c echo.Context) error {
	s, err := h.adminChannelUseCase.ListAdminInbox(c.Request().Context())
	return serve(h, c, "admin/inbox", s, err)
}

func (h *WebSocketHandler) AdminUsers(c echo.Context) error {
	s, err := h.roleUseCase.ListUsers(c.Request().Context())
	return serve(h, c, "admin/users", s, err)
}

func (h *WebSocketHandler) AdminUserMessages(c echo.Context) error {
	s, err := h.adminChannelUseCase.ListUserChannel(c.Request().Context(), c.Param("id"))
	return serve(h, c, "admin/users/"+c.Param("id")+"/messages", s, err)
}
