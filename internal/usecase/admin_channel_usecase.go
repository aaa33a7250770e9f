package usecase

import (
	"context"
	"strings"
	"time"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/internal/domain/repository"
	"dragonflychat/pkg/errors"
	"dragonflychat/pkg/logger"
	"dragonflychat/pkg/stream"
)

const (
	DefaultAdminChatID = "admin_support"
	AdminChatTitle     = "Admin Support"
)

// AdminChannelUseCase routes support messages between end users and admins through one
// well-known conversation id that every user owns a copy of.
//
// Write policy for admin replies: the realtime store is the delivery path and the
// document store holds a replica under users/{uid}/conversations/{adminChatID}/messages
// for ordered history. The replica is written best-effort. A failed replica write is
// logged and neither retried nor compensated.
type AdminChannelUseCase struct {
	chat             *ChatUseCase
	roles            *RoleUseCase
	conversationRepo repository.ConversationRepository
	inboxRepo        repository.AdminInboxRepository
	identity         IdentityResolver
	adminChatID      string
	resubscribeDelay time.Duration
}

func NewAdminChannelUseCase(
	chat *ChatUseCase,
	roles *RoleUseCase,
	conversationRepo repository.ConversationRepository,
	inboxRepo repository.AdminInboxRepository,
	identity IdentityResolver,
	adminChatID string,
) *AdminChannelUseCase {
	if adminChatID == "" {
		adminChatID = DefaultAdminChatID
	}
	return &AdminChannelUseCase{
		chat:             chat,
		roles:            roles,
		conversationRepo: conversationRepo,
		inboxRepo:        inboxRepo,
		identity:         identity,
		adminChatID:      adminChatID,
		resubscribeDelay: chat.resubscribeDelay,
	}
}

func (uc *AdminChannelUseCase) AdminChatID() string {
	return uc.adminChatID
}

// GetOrCreateAdminChat is idempotent. Concurrent first calls race on a create
// precondition, so exactly one document ever exists.
func (uc *AdminChannelUseCase) GetOrCreateAdminChat(ctx context.Context) (string, error) {
	caller, err := requireCaller(ctx, uc.identity)
	if err != nil {
		return "", err
	}
	if err := uc.ensureChannel(ctx, caller.UID); err != nil {
		return "", err
	}
	return uc.adminChatID, nil
}

func (uc *AdminChannelUseCase) ensureChannel(ctx context.Context, ownerID string) error {
	_, err := uc.conversationRepo.Get(ctx, ownerID, uc.adminChatID)
	if err == nil {
		return nil
	}
	if !errors.IsNotFound(err) {
		return err
	}

	err = uc.conversationRepo.Create(ctx, &entity.Conversation{
		ID:          uc.adminChatID,
		Title:       AdminChatTitle,
		OwnerID:     ownerID,
		LastUpdated: now(),
	})
	if err != nil && !errors.Is(err, errors.CodeConflict) {
		logger.Error("GetOrCreateAdminChat Error: %s: %v", ownerID, err)
		return err
	}
	return nil
}

// SendUserMessageToAdmin appends msg to the caller's support channel and records it in
// the admin inbox.
func (uc *AdminChannelUseCase) SendUserMessageToAdmin(ctx context.Context, msg *entity.Message) (*entity.Message, error) {
	caller, err := requireCaller(ctx, uc.identity)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(msg.Content) == "" {
		return nil, errors.InvalidArgument("Message content is required", nil)
	}

	if err := uc.chat.claimMessageID(ctx, caller.UID, uc.adminChatID, msg.ID, caller.UID); err != nil {
		return nil, err
	}

	msg.IsUser = true
	prepareMessage(msg, uc.adminChatID, caller, entity.SenderRoleUser)

	if err := uc.ensureChannel(ctx, caller.UID); err != nil {
		return nil, err
	}
	if err := uc.chat.appendMessage(ctx, caller.UID, uc.adminChatID, msg); err != nil {
		return nil, err
	}

	if err := uc.UpdateConversationMetadata(ctx, caller.UID, senderName(caller), caller.Email, msg.Content); err != nil {
		logger.Warn("SendUserMessageToAdmin: inbox not updated for %s: %v", caller.UID, err)
	}
	return msg, nil
}

// SendAdminReply delivers msg into targetUserID's support channel. Admin only.
func (uc *AdminChannelUseCase) SendAdminReply(ctx context.Context, targetUserID string, msg *entity.Message) (*entity.Message, error) {
	caller, err := uc.roles.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if targetUserID == "" {
		return nil, errors.InvalidArgument("Target user id is required", nil)
	}
	if strings.TrimSpace(msg.Content) == "" {
		return nil, errors.InvalidArgument("Message content is required", nil)
	}

	if err := uc.chat.claimMessageID(ctx, targetUserID, uc.adminChatID, msg.ID, caller.UID); err != nil {
		return nil, err
	}

	msg.IsUser = false
	prepareMessage(msg, uc.adminChatID, caller, entity.SenderRoleAdmin)

	if err := uc.ensureChannel(ctx, targetUserID); err != nil {
		return nil, err
	}
	if err := uc.chat.messageRepo.Put(ctx, targetUserID, uc.adminChatID, msg); err != nil {
		logger.Error("SendAdminReply Error: write to %s: %v", targetUserID, err)
		return nil, err
	}

	if err := uc.conversationRepo.AddChannelMessage(ctx, targetUserID, uc.adminChatID, msg); err != nil {
		logger.Error("SendAdminReply: history replica for %s/%s not written: %v", targetUserID, msg.ID, err)
	}

	if err := uc.chat.touchConversation(ctx, targetUserID, uc.adminChatID, msg.Timestamp); err != nil {
		logger.Warn("SendAdminReply: conversation of %s not bumped: %v", targetUserID, err)
	}

	if err := uc.inboxRepo.MarkReplied(ctx, targetUserID); err != nil && !errors.IsNotFound(err) {
		logger.Warn("SendAdminReply: inbox of %s not reset: %v", targetUserID, err)
	}
	return msg, nil
}

// UpdateConversationMetadata records one more unread user message. The counter is
// incremented atomically by the store, so concurrent sends are all counted. Allowed for
// the user themselves or an admin.
func (uc *AdminChannelUseCase) UpdateConversationMetadata(ctx context.Context, userID, userName, userEmail, lastMessage string) error {
	caller, err := requireCaller(ctx, uc.identity)
	if err != nil {
		return err
	}
	if caller.UID != userID && !uc.roles.IsAdmin(ctx) {
		return errors.Unauthorized("Cannot update another user's inbox record", nil)
	}

	return uc.inboxRepo.RecordUserMessage(ctx, &entity.ConversationMetadata{
		ID:              userID,
		UserID:          userID,
		UserName:        userName,
		UserEmail:       userEmail,
		LastMessage:     lastMessage,
		LastMessageTime: now().UnixMilli(),
	})
}

func (uc *AdminChannelUseCase) MarkConversationAsReplied(ctx context.Context, userID string) error {
	if _, err := uc.roles.requireAdmin(ctx); err != nil {
		return err
	}
	return uc.inboxRepo.MarkReplied(ctx, userID)
}

// CloseConversation marks the user's inbox record as resolved. The next user message
// reopens it.
func (uc *AdminChannelUseCase) CloseConversation(ctx context.Context, userID string) error {
	if _, err := uc.roles.requireAdmin(ctx); err != nil {
		return err
	}
	return uc.inboxRepo.SetResolved(ctx, userID, true)
}

// AdminUnreadCount is the number of users with at least one unread message.
func (uc *AdminChannelUseCase) AdminUnreadCount(ctx context.Context) (int, error) {
	if _, err := uc.roles.requireAdmin(ctx); err != nil {
		return 0, err
	}
	return uc.inboxRepo.CountUnread(ctx)
}

// ListAdminInbox streams every inbox record, most recent message first. Admin only.
func (uc *AdminChannelUseCase) ListAdminInbox(ctx context.Context) (*stream.Stream[[]*entity.ConversationMetadata], error) {
	if _, err := uc.roles.requireAdmin(ctx); err != nil {
		return nil, err
	}

	return keepAlive(ctx, "admin_inbox", uc.resubscribeDelay,
		func(ctx context.Context) *stream.Stream[[]*entity.ConversationMetadata] {
			return uc.inboxRepo.Watch(ctx)
		}, nil), nil
}

// ListAdminMessages streams the caller's own support channel from the realtime store.
func (uc *AdminChannelUseCase) ListAdminMessages(ctx context.Context) (*stream.Stream[[]*entity.Message], error) {
	caller, err := requireCaller(ctx, uc.identity)
	if err != nil {
		return nil, err
	}
	return uc.chat.watchMessages(ctx, caller.UID, uc.adminChatID), nil
}

// ListUserChannel is the admin's realtime view of one user's support channel.
func (uc *AdminChannelUseCase) ListUserChannel(ctx context.Context, userID string) (*stream.Stream[[]*entity.Message], error) {
	if _, err := uc.roles.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return uc.chat.watchMessages(ctx, userID, uc.adminChatID), nil
}

// ListChannelHistory streams the document-store replica of a support channel. Users may
// read their own; admins may read anyone's. An empty userID means the caller.
func (uc *AdminChannelUseCase) ListChannelHistory(ctx context.Context, userID string) (*stream.Stream[[]*entity.Message], error) {
	caller, err := requireCaller(ctx, uc.identity)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		userID = caller.UID
	}
	if userID != caller.UID && !uc.roles.IsAdmin(ctx) {
		return nil, errors.Unauthorized("Cannot read another user's support history", nil)
	}

	return keepAlive(ctx, "history/"+userID, uc.resubscribeDelay,
		func(ctx context.Context) *stream.Stream[[]*entity.Message] {
			return uc.conversationRepo.WatchChannelMessages(ctx, userID, uc.adminChatID)
		}, sortMessages), nil
}
