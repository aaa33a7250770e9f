package repository

import (
	"context"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/pkg/stream"
)

// MessageRepository stores message payloads in the realtime store at
// messages/{ownerId}/{conversationId}/{messageId}. The store has no ordering, so
// Watch emits snapshots in arbitrary order and callers sort.
type MessageRepository interface {
	// Get returns NOT_FOUND when no record exists under messageID.
	Get(ctx context.Context, ownerID, conversationID, messageID string) (*entity.Message, error)
	Put(ctx context.Context, ownerID, conversationID string, msg *entity.Message) error
	// Patch edits an existing record and fails with NOT_FOUND instead of creating one.
	Patch(ctx context.Context, ownerID, conversationID, messageID string, edit entity.MessageEdit) error
	DeleteConversation(ctx context.Context, ownerID, conversationID string) error
	// Watch emits the whole subtree on every change, starting with the current state.
	// It terminates with an error when the listener is cancelled by the store.
	Watch(ctx context.Context, ownerID, conversationID string) *stream.Stream[[]*entity.Message]
}
