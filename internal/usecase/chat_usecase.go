package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/internal/domain/repository"
	"dragonflychat/pkg/errors"
	"dragonflychat/pkg/logger"
	"dragonflychat/pkg/stream"
)

// ChatUseCase owns the caller's own conversations. Conversation documents live in the
// document store, message payloads in the realtime store.
type ChatUseCase struct {
	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository
	identity         IdentityResolver
	resubscribeDelay time.Duration
}

func NewChatUseCase(
	conversationRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	identity IdentityResolver,
	resubscribeDelay time.Duration,
) *ChatUseCase {
	if resubscribeDelay <= 0 {
		resubscribeDelay = 3 * time.Second
	}
	return &ChatUseCase{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		identity:         identity,
		resubscribeDelay: resubscribeDelay,
	}
}

func (uc *ChatUseCase) CreateConversation(ctx context.Context, title string) (string, error) {
	caller, err := requireCaller(ctx, uc.identity)
	if err != nil {
		return "", err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = entity.DefaultConversationTitle
	}

	conv := &entity.Conversation{
		Title:       title,
		OwnerID:     caller.UID,
		LastUpdated: now(),
	}
	if err := uc.conversationRepo.Create(ctx, conv); err != nil {
		logger.Error("CreateConversation Error: user %s: %v", caller.UID, err)
		return "", err
	}
	return conv.ID, nil
}

func (uc *ChatUseCase) GetConversation(ctx context.Context, conversationID string) (*entity.Conversation, error) {
	caller, err := requireCaller(ctx, uc.identity)
	if err != nil {
		return nil, err
	}
	return uc.conversationRepo.Get(ctx, caller.UID, conversationID)
}

// ListConversations streams the caller's conversations, oldest update first.
func (uc *ChatUseCase) ListConversations(ctx context.Context) (*stream.Stream[[]*entity.Conversation], error) {
	caller, err := requireCaller(ctx, uc.identity)
	if err != nil {
		return nil, err
	}

	return keepAlive(ctx, "conversations/"+caller.UID, uc.resubscribeDelay,
		func(ctx context.Context) *stream.Stream[[]*entity.Conversation] {
			return uc.conversationRepo.WatchByOwner(ctx, caller.UID)
		}, nil), nil
}

// ListMessages streams the caller's messages in one conversation, sorted by timestamp.
func (uc *ChatUseCase) ListMessages(ctx context.Context, conversationID string) (*stream.Stream[[]*entity.Message], error) {
	caller, err := requireCaller(ctx, uc.identity)
	if err != nil {
		return nil, err
	}
	return uc.watchMessages(ctx, caller.UID, conversationID), nil
}

func (uc *ChatUseCase) watchMessages(ctx context.Context, ownerID, conversationID string) *stream.Stream[[]*entity.Message] {
	return keepAlive(ctx, "messages/"+ownerID+"/"+conversationID, uc.resubscribeDelay,
		func(ctx context.Context) *stream.Stream[[]*entity.Message] {
			return uc.messageRepo.Watch(ctx, ownerID, conversationID)
		}, sortMessages)
}

func sortMessages(msgs []*entity.Message) []*entity.Message {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].SortKey() == msgs[j].SortKey() {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].SortKey() < msgs[j].SortKey()
	})
	return msgs
}

// SendMessage stores msg in the caller's conversation and returns it with its id and
// timestamp filled in.
func (uc *ChatUseCase) SendMessage(ctx context.Context, conversationID string, msg *entity.Message) (*entity.Message, error) {
	caller, err := requireCaller(ctx, uc.identity)
	if err != nil {
		return nil, err
	}
	if conversationID == "" {
		return nil, errors.InvalidArgument("Conversation id is required", nil)
	}

	if err := uc.claimMessageID(ctx, caller.UID, conversationID, msg.ID, caller.UID); err != nil {
		return nil, err
	}

	prepareMessage(msg, conversationID, caller, entity.SenderRoleUser)
	if err := uc.appendMessage(ctx, caller.UID, conversationID, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// claimMessageID rejects a client-chosen id that already names a message from another
// sender. Resending one's own id overwrites the earlier write.
func (uc *ChatUseCase) claimMessageID(ctx context.Context, ownerID, conversationID, messageID, senderUID string) error {
	if messageID == "" {
		return nil
	}

	existing, err := uc.messageRepo.Get(ctx, ownerID, conversationID, messageID)
	if errors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.SenderUID != senderUID {
		return errors.Unauthorized("Message id is already taken", nil)
	}
	return nil
}

// appendMessage writes msg to the realtime store and then bumps the conversation. The two
// writes are not atomic: a failure after the first leaves the message visible with a stale
// lastUpdated.
func (uc *ChatUseCase) appendMessage(ctx context.Context, ownerID, conversationID string, msg *entity.Message) error {
	if err := uc.messageRepo.Put(ctx, ownerID, conversationID, msg); err != nil {
		logger.Error("SendMessage Error: write %s/%s/%s: %v", ownerID, conversationID, msg.ID, err)
		return err
	}
	return uc.touchConversation(ctx, ownerID, conversationID, msg.Timestamp)
}

func (uc *ChatUseCase) touchConversation(ctx context.Context, ownerID, conversationID string, at time.Time) error {
	err := uc.conversationRepo.Touch(ctx, ownerID, conversationID, at)
	if err == nil {
		return nil
	}
	if !errors.IsNotFound(err) {
		logger.Error("SendMessage Error: bump conversation %s/%s: %v", ownerID, conversationID, err)
		return err
	}

	if err := uc.conversationRepo.Merge(ctx, ownerID, conversationID, entity.ConversationUpdate{
		OwnerID:     ownerID,
		LastUpdated: at,
	}); err != nil {
		logger.Error("SendMessage Error: create conversation %s/%s: %v", ownerID, conversationID, err)
		return err
	}
	return nil
}

// DeleteConversation removes the messages first, then the document. A failure in between
// leaves unreachable messages behind.
func (uc *ChatUseCase) DeleteConversation(ctx context.Context, conversationID string) error {
	caller, err := requireCaller(ctx, uc.identity)
	if err != nil {
		return err
	}

	if err := uc.messageRepo.DeleteConversation(ctx, caller.UID, conversationID); err != nil {
		logger.Error("DeleteConversation Error: messages %s/%s: %v", caller.UID, conversationID, err)
		return err
	}
	if err := uc.conversationRepo.Delete(ctx, caller.UID, conversationID); err != nil {
		logger.Error("DeleteConversation Error: document %s/%s: %v", caller.UID, conversationID, err)
		return err
	}
	return nil
}

func (uc *ChatUseCase) UpdateMessage(ctx context.Context, conversationID, messageID, content string) error {
	caller, err := requireCaller(ctx, uc.identity)
	if err != nil {
		return err
	}

	existing, err := uc.messageRepo.Get(ctx, caller.UID, conversationID, messageID)
	if err != nil {
		return err
	}
	if existing.SenderUID != caller.UID {
		return errors.Unauthorized("Cannot edit a message written by someone else", nil)
	}

	return uc.messageRepo.Patch(ctx, caller.UID, conversationID, messageID, entity.MessageEdit{
		Content:  content,
		EditedAt: now(),
	})
}

func (uc *ChatUseCase) UpdateConversationTitle(ctx context.Context, conversationID, title string) error {
	caller, err := requireCaller(ctx, uc.identity)
	if err != nil {
		return err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return errors.InvalidArgument("Title must not be empty", nil)
	}

	return uc.conversationRepo.Merge(ctx, caller.UID, conversationID, entity.ConversationUpdate{
		Title:       &title,
		LastUpdated: now(),
	})
}
