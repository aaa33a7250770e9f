package repository

import (
	"context"
	"time"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/pkg/stream"
)

// ConversationRepository manages conversation documents under users/{ownerId}.
type ConversationRepository interface {
	// Create assigns an id when conv.ID is empty and fails with CONFLICT if the id is taken.
	Create(ctx context.Context, conv *entity.Conversation) error
	Get(ctx context.Context, ownerID, conversationID string) (*entity.Conversation, error)
	// Touch updates lastUpdated on an existing document, NOT_FOUND otherwise.
	Touch(ctx context.Context, ownerID, conversationID string, at time.Time) error
	// Merge writes the given fields, creating the document if needed.
	Merge(ctx context.Context, ownerID, conversationID string, update entity.ConversationUpdate) error
	Delete(ctx context.Context, ownerID, conversationID string) error
	// WatchByOwner emits every conversation of ownerID ordered by lastUpdated ascending.
	// The stream terminates with an error if the store listener fails.
	WatchByOwner(ctx context.Context, ownerID string) *stream.Stream[[]*entity.Conversation]

	// Channel history is the document-store replica of admin-channel messages at
	// users/{ownerId}/conversations/{conversationId}/messages. It exists for ordered
	// historical queries; the realtime store remains the delivery path.
	AddChannelMessage(ctx context.Context, ownerID, conversationID string, msg *entity.Message) error
	WatchChannelMessages(ctx context.Context, ownerID, conversationID string) *stream.Stream[[]*entity.Message]
}

// AdminInboxRepository owns the flat admin_inbox projection, one record per end user.
type AdminInboxRepository interface {
	Get(ctx context.Context, userID string) (*entity.ConversationMetadata, error)
	// RecordUserMessage overwrites the descriptive fields of meta and atomically adds one
	// to unreadCount. meta.UnreadCount is ignored.
	RecordUserMessage(ctx context.Context, meta *entity.ConversationMetadata) error
	// MarkReplied resets unreadCount to zero and clears lastMessageFromUser.
	MarkReplied(ctx context.Context, userID string) error
	SetResolved(ctx context.Context, userID string, resolved bool) error
	CountUnread(ctx context.Context) (int, error)
	// Watch emits all records ordered by lastMessageTime descending.
	Watch(ctx context.Context) *stream.Stream[[]*entity.ConversationMetadata]
}
