package usecase

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/internal/infrastructure/chatbot"
	"dragonflychat/internal/infrastructure/ratelimit"
	"dragonflychat/pkg/errors"
	"dragonflychat/pkg/logger"
)

const (
	ChatbotSenderID   = "chatbot"
	ChatbotSenderName = "Chatbot"
)

// ActionAsk is the rate limiter action charged per question.
const ActionAsk = "ask"

// ChatbotUseCase stores a question and the bot's answer in one of the caller's
// conversations. When the bot fails, its fixed fallback text is stored as the answer.
type ChatbotUseCase struct {
	chat        *ChatUseCase
	bot         ChatbotClient
	rateLimiter *ratelimit.RateLimiter
	identity    IdentityResolver
}

func NewChatbotUseCase(chat *ChatUseCase, bot ChatbotClient, rateLimiter *ratelimit.RateLimiter, identity IdentityResolver) *ChatbotUseCase {
	return &ChatbotUseCase{
		chat:        chat,
		bot:         bot,
		rateLimiter: rateLimiter,
		identity:    identity,
	}
}

type AskResult struct {
	Question *entity.Message `json:"question"`
	Reply    *entity.Message `json:"reply"`
	// Failed is set when Reply holds fallback text instead of an answer.
	Failed bool `json:"failed"`
}

func (uc *ChatbotUseCase) Ask(ctx context.Context, conversationID, question string) (*AskResult, error) {
	caller, err := requireCaller(ctx, uc.identity)
	if err != nil {
		return nil, err
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.InvalidArgument("Question must not be empty", nil)
	}

	if uc.rateLimiter != nil {
		if allowed, wait := uc.rateLimiter.Allow(caller.UID, ActionAsk); !allowed {
			logger.Warn("Ask Rate Limited: user %s must wait %v", caller.UID, wait)
			return nil, errors.TooManyRequests("Too many questions, please wait " + wait.Round(time.Second).String())
		}
	}

	asked, err := uc.chat.SendMessage(ctx, conversationID, &entity.Message{
		Content: question,
		IsUser:  true,
	})
	if err != nil {
		return nil, err
	}

	result := &AskResult{Question: asked}
	text, err := uc.bot.Ask(ctx, question)
	if err != nil {
		logger.Error("Ask Error: chatbot failed for user %s: %v", caller.UID, err)
		text = chatbot.FallbackUnreachable
		var botErr *chatbot.Error
		if stderrors.As(err, &botErr) {
			text = botErr.Fallback
		}
		result.Failed = true
	}

	reply := &entity.Message{
		Content:    text,
		IsUser:     false,
		SenderUID:  ChatbotSenderID,
		SenderName: ChatbotSenderName,
	}
	prepareMessage(reply, conversationID, caller, entity.SenderRoleBot)
	if err := uc.chat.appendMessage(ctx, caller.UID, conversationID, reply); err != nil {
		return nil, err
	}

	result.Reply = reply
	return result, nil
}
