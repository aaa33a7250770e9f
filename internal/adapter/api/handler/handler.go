package handler

import (
	ws "dragonflychat/internal/infrastructure/websocket"
	"dragonflychat/internal/usecase"
)

var (
	authHandler      *AuthHandler
	userHandler      *UserHandler
	chatHandler      *ChatHandler
	supportHandler   *SupportHandler
	adminHandler     *AdminHandler
	websocketHandler *WebSocketHandler
	healthHandler    *HealthHandler
)

func Setup(
	chatUseCase *usecase.ChatUseCase,
	adminChannelUseCase *usecase.AdminChannelUseCase,
	roleUseCase *usecase.RoleUseCase,
	chatbotUseCase *usecase.ChatbotUseCase,
	wsManager *ws.Manager,
	backend string,
) {
	authHandler = NewAuthHandler(roleUseCase)
	userHandler = NewUserHandler(roleUseCase)
	chatHandler = NewChatHandler(chatUseCase, chatbotUseCase)
	supportHandler = NewSupportHandler(adminChannelUseCase)
	adminHandler = NewAdminHandler(adminChannelUseCase, roleUseCase)
	websocketHandler = NewWebSocketHandler(wsManager, chatUseCase, adminChannelUseCase, roleUseCase)
	healthHandler = NewHealthHandler(wsManager, backend)
}

func GetAuthHandler() *AuthHandler {
	return authHandler
}

func GetUserHandler() *UserHandler {
	return userHandler
}

func GetChatHandler() *ChatHandler {
	return chatHandler
}

func GetSupportHandler() *SupportHandler {
	return supportHandler
}

func GetAdminHandler() *AdminHandler {
	return adminHandler
}

func GetWebSocketHandler() *WebSocketHandler {
	return websocketHandler
}

func GetHealthHandler() *HealthHandler {
	return healthHandler
}
