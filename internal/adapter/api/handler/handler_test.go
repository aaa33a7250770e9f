package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dragonflychat/internal/adapter/api"
	"dragonflychat/internal/adapter/api/handler"
	"dragonflychat/internal/adapter/api/middleware"
	"dragonflychat/internal/adapter/api/router"
	"dragonflychat/internal/adapter/repository/memory"
	"dragonflychat/internal/domain/entity"
	"dragonflychat/internal/infrastructure/chatbot"
	"dragonflychat/internal/infrastructure/firebase"
	"dragonflychat/internal/infrastructure/websocket"
	"dragonflychat/internal/usecase"
	"dragonflychat/pkg/errors"
)

const adminEmail = "root@example.com"

// tokenTable accepts "token-<uid>" for every uid it was given.
type tokenTable map[string]*entity.Identity

func (t tokenTable) VerifyToken(ctx context.Context, token string) (*entity.Identity, error) {
	id, ok := t[token]
	if !ok {
		return nil, errors.NotAuthenticated("unknown token")
	}
	return id, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func newServer(t *testing.T, botURL string) *echo.Echo {
	t.Helper()

	identity := firebase.NewContextIdentity()
	convs := memory.NewConversationRepository()

	chat := usecase.NewChatUseCase(convs, memory.NewMessageRepository(), identity, 50*time.Millisecond)
	roles := usecase.NewRoleUseCase(memory.NewUserRepository(), memory.NewUserMirrorRepository(), identity, adminEmail, 50*time.Millisecond)
	admin := usecase.NewAdminChannelUseCase(chat, roles, convs, memory.NewAdminInboxRepository(), identity, usecase.DefaultAdminChatID)
	bot := usecase.NewChatbotUseCase(chat, chatbot.NewClient(botURL, time.Second), nil, identity)

	wsManager := websocket.NewManager()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go wsManager.Run(ctx)

	handler.Setup(chat, admin, roles, bot, wsManager, "memory/memory")

	tokens := tokenTable{
		"token-alice": {UID: "alice", Email: "alice@example.com", DisplayName: "Alice"},
		"token-bob":   {UID: "bob", Email: "bob@example.com"},
		"token-root":  {UID: "root", Email: adminEmail, DisplayName: "Root"},
	}

	e := echo.New()
	e.Validator = api.NewValidator()
	router.Setup(e, middleware.NewAuthMiddleware(tokens), middleware.NewAdminMiddleware(roles), middleware.RateLimit(1000))
	return e
}

func do(t *testing.T, e *echo.Echo, method, path, uid string, body interface{}) (int, envelope) {
	t.Helper()

	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if uid != "" {
		req.Header.Set("Authorization", "Bearer token-"+uid)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestHealthCheck(t *testing.T) {
	e := newServer(t, "http://127.0.0.1:1")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), "memory/memory")
}

func TestRequiresAuthentication(t *testing.T) {
	e := newServer(t, "http://127.0.0.1:1")

	code, _ := do(t, e, http.MethodGet, "/v1/conversations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do(t, e, http.MethodGet, "/v1/conversations", "mallory", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestSessionCreatesProfileOnce(t *testing.T) {
	e := newServer(t, "http://127.0.0.1:1")

	code, env := do(t, e, http.MethodPost, "/v1/auth/session", "alice", nil)
	require.Equal(t, http.StatusOK, code)
	first := decode[map[string]interface{}](t, env)
	assert.Equal(t, true, first["created"])
	assert.Equal(t, "user", first["role"])

	_, env = do(t, e, http.MethodPost, "/v1/auth/session", "alice", nil)
	assert.Equal(t, false, decode[map[string]interface{}](t, env)["created"])

	_, env = do(t, e, http.MethodPost, "/v1/auth/session", "root", nil)
	root := decode[map[string]interface{}](t, env)
	assert.Equal(t, "admin", root["role"])
	assert.Equal(t, true, root["is_admin"])

	code, env = do(t, e, http.MethodGet, "/v1/users/me", "alice", nil)
	require.Equal(t, http.StatusOK, code)
	me := decode[struct {
		User entity.User `json:"user"`
	}](t, env)
	assert.Equal(t, "alice@example.com", me.User.Email)
}

func TestConversationLifecycle(t *testing.T) {
	e := newServer(t, "http://127.0.0.1:1")

	code, env := do(t, e, http.MethodPost, "/v1/conversations", "alice", map[string]string{"title": "Trip"})
	require.Equal(t, http.StatusCreated, code)
	id := decode[map[string]string](t, env)["id"]
	require.NotEmpty(t, id)

	for i := 0; i < 3; i++ {
		code, _ = do(t, e, http.MethodPost, "/v1/conversations/"+id+"/messages", "alice",
			map[string]string{"content": fmt.Sprintf("message %d", i)})
		require.Equal(t, http.StatusCreated, code)
	}

	code, env = do(t, e, http.MethodGet, "/v1/conversations/"+id+"/messages?limit=2&page=2", "alice", nil)
	require.Equal(t, http.StatusOK, code)
	msgs := decode[page[entity.Message]](t, env)
	assert.Equal(t, 3, msgs.Total)
	require.Len(t, msgs.Items, 1)
	assert.Equal(t, "message 2", msgs.Items[0].Content)

	code, _ = do(t, e, http.MethodPatch, "/v1/conversations/"+id, "alice", map[string]string{"title": "Trip 2"})
	require.Equal(t, http.StatusOK, code)

	_, env = do(t, e, http.MethodGet, "/v1/conversations/"+id, "alice", nil)
	assert.Equal(t, "Trip 2", decode[entity.Conversation](t, env).Title)

	// conversations are scoped to their owner
	code, _ = do(t, e, http.MethodGet, "/v1/conversations/"+id, "bob", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, e, http.MethodDelete, "/v1/conversations/"+id, "alice", nil)
	require.Equal(t, http.StatusOK, code)

	_, env = do(t, e, http.MethodGet, "/v1/conversations", "alice", nil)
	assert.Equal(t, 0, decode[page[entity.Conversation]](t, env).Total)
}

func TestValidationErrors(t *testing.T) {
	e := newServer(t, "http://127.0.0.1:1")

	code, env := do(t, e, http.MethodPost, "/v1/conversations/c1/messages", "alice", map[string]string{"content": ""})
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, "content is required", env.Error.Message)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	e := newServer(t, "http://127.0.0.1:1")
	do(t, e, http.MethodPost, "/v1/auth/session", "alice", nil)

	code, _ := do(t, e, http.MethodGet, "/v1/admin/inbox", "alice", nil)
	assert.Equal(t, http.StatusForbidden, code)

	do(t, e, http.MethodPost, "/v1/auth/session", "root", nil)
	code, _ = do(t, e, http.MethodGet, "/v1/admin/inbox", "root", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestSupportRoundTrip(t *testing.T) {
	e := newServer(t, "http://127.0.0.1:1")
	do(t, e, http.MethodPost, "/v1/auth/session", "alice", nil)
	do(t, e, http.MethodPost, "/v1/auth/session", "root", nil)

	code, env := do(t, e, http.MethodPost, "/v1/support/chat", "alice", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, usecase.DefaultAdminChatID, decode[map[string]string](t, env)["id"])

	code, _ = do(t, e, http.MethodPost, "/v1/support/messages", "alice", map[string]string{"content": "help"})
	require.Equal(t, http.StatusCreated, code)

	_, env = do(t, e, http.MethodGet, "/v1/admin/inbox/unread", "root", nil)
	assert.Equal(t, 1, decode[map[string]int](t, env)["unread"])

	_, env = do(t, e, http.MethodGet, "/v1/admin/inbox", "root", nil)
	inbox := decode[page[entity.ConversationMetadata]](t, env)
	require.Len(t, inbox.Items, 1)
	assert.Equal(t, "alice", inbox.Items[0].UserID)
	assert.Equal(t, 1, inbox.Items[0].UnreadCount)

	code, _ = do(t, e, http.MethodPost, "/v1/admin/users/alice/reply", "root", map[string]string{"content": "on it"})
	require.Equal(t, http.StatusCreated, code)

	_, env = do(t, e, http.MethodGet, "/v1/admin/inbox/unread", "root", nil)
	assert.Equal(t, 0, decode[map[string]int](t, env)["unread"])

	_, env = do(t, e, http.MethodGet, "/v1/support/messages", "alice", nil)
	msgs := decode[page[entity.Message]](t, env)
	require.Len(t, msgs.Items, 2)
	assert.True(t, msgs.Items[0].IsUser)
	assert.False(t, msgs.Items[1].IsUser)
	assert.Equal(t, entity.SenderRoleAdmin, msgs.Items[1].SenderRole)

	// only the admin reply is mirrored into the history replica
	_, env = do(t, e, http.MethodGet, "/v1/support/history", "alice", nil)
	history := decode[page[entity.Message]](t, env)
	require.Len(t, history.Items, 1)
	assert.Equal(t, "on it", history.Items[0].Content)

	code, _ = do(t, e, http.MethodGet, "/v1/admin/users/alice/history", "bob", nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestSetRole(t *testing.T) {
	e := newServer(t, "http://127.0.0.1:1")
	do(t, e, http.MethodPost, "/v1/auth/session", "alice", nil)
	do(t, e, http.MethodPost, "/v1/auth/session", "root", nil)

	code, env := do(t, e, http.MethodPut, "/v1/admin/roles", "root", map[string]string{"email": "alice@example.com", "role": "owner"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	code, _ = do(t, e, http.MethodPut, "/v1/admin/roles", "root", map[string]string{"email": "alice@example.com", "role": "admin"})
	require.Equal(t, http.StatusOK, code)

	_, env = do(t, e, http.MethodGet, "/v1/admin/users/alice/role", "root", nil)
	assert.Equal(t, "admin", decode[map[string]string](t, env)["role"])

	code, _ = do(t, e, http.MethodGet, "/v1/admin/users", "alice", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAskStoresReply(t *testing.T) {
	bot := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"reply": "42"})
	}))
	defer bot.Close()

	e := newServer(t, bot.URL)

	_, env := do(t, e, http.MethodPost, "/v1/conversations", "alice", map[string]string{"title": "Questions"})
	id := decode[map[string]string](t, env)["id"]

	code, env := do(t, e, http.MethodPost, "/v1/conversations/"+id+"/ask", "alice", map[string]string{"question": "meaning?"})
	require.Equal(t, http.StatusCreated, code)
	result := decode[usecase.AskResult](t, env)
	assert.False(t, result.Failed)
	assert.Equal(t, "42", result.Reply.Content)
	assert.Equal(t, usecase.ChatbotSenderID, result.Reply.SenderUID)

	_, env = do(t, e, http.MethodGet, "/v1/conversations/"+id+"/messages", "alice", nil)
	assert.Equal(t, 2, decode[page[entity.Message]](t, env).Total)
}
