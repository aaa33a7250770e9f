package memory

import (
	"context"
	"sync"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/pkg/errors"
	"dragonflychat/pkg/stream"
)

// MessageRepository keeps messages in their realtime encoding, so everything read back
// has been through the same millisecond round trip as the real store.
type MessageRepository struct {
	mu    sync.Mutex
	trees map[convKey]map[string]entity.RealtimeMessage
	hub   *hub
}

func NewMessageRepository() *MessageRepository {
	return &MessageRepository{
		trees: make(map[convKey]map[string]entity.RealtimeMessage),
		hub:   newHub(),
	}
}

func (r *MessageRepository) Get(ctx context.Context, ownerID, conversationID, messageID string) (*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.trees[convKey{ownerID, conversationID}][messageID]
	if !ok {
		return nil, errors.NotFound("Message", nil)
	}
	return rm.ToMessage(messageID), nil
}

func (r *MessageRepository) Put(ctx context.Context, ownerID, conversationID string, msg *entity.Message) error {
	key := convKey{ownerID, conversationID}

	r.mu.Lock()
	if r.trees[key] == nil {
		r.trees[key] = make(map[string]entity.RealtimeMessage)
	}
	r.trees[key][msg.ID] = msg.ToRealtime()
	r.mu.Unlock()

	r.hub.notify()
	return nil
}

func (r *MessageRepository) Patch(ctx context.Context, ownerID, conversationID, messageID string, edit entity.MessageEdit) error {
	key := convKey{ownerID, conversationID}

	r.mu.Lock()
	rm, ok := r.trees[key][messageID]
	if !ok {
		r.mu.Unlock()
		return errors.NotFound("Message", nil)
	}
	editedAt := edit.EditedAt.UnixMilli()
	rm.Content = edit.Content
	rm.Edited = true
	rm.EditedAt = &editedAt
	r.trees[key][messageID] = rm
	r.mu.Unlock()

	r.hub.notify()
	return nil
}

func (r *MessageRepository) DeleteConversation(ctx context.Context, ownerID, conversationID string) error {
	r.mu.Lock()
	delete(r.trees, convKey{ownerID, conversationID})
	r.mu.Unlock()

	r.hub.notify()
	return nil
}

// Watch returns messages in map order, like the real store.
func (r *MessageRepository) Watch(ctx context.Context, ownerID, conversationID string) *stream.Stream[[]*entity.Message] {
	key := convKey{ownerID, conversationID}
	return watch(ctx, r.hub, func() []*entity.Message {
		r.mu.Lock()
		defer r.mu.Unlock()

		out := make([]*entity.Message, 0, len(r.trees[key]))
		for id, rm := range r.trees[key] {
			out = append(out, rm.ToMessage(id))
		}
		return out
	})
}

// Len returns how many messages are stored for the conversation.
func (r *MessageRepository) Len(ownerID, conversationID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trees[convKey{ownerID, conversationID}])
}

// FailWatchers cancels every open subscription with err, as the store does when a
// listener is revoked.
func (r *MessageRepository) FailWatchers(err error) {
	r.hub.failAll(err)
}

func (r *MessageRepository) ActiveListeners() int {
	return r.hub.active()
}
