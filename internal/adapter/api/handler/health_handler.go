package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	ws "dragonflychat/internal/infrastructure/websocket"
)

type HealthHandler struct {
	wsManager *ws.Manager
	backend   string
}

func NewHealthHandler(wsManager *ws.Manager, backend string) *HealthHandler {
	return &HealthHandler{
		wsManager: wsManager,
		backend:   backend,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"time":        time.Now().Format(time.RFC3339),
		"backend":     h.backend,
		"subscribers": h.wsManager.Count(),
	})
}
