package repository

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"firebase.google.com/go/v4/db"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/internal/domain/repository"
	"dragonflychat/pkg/errors"
	"dragonflychat/pkg/logger"
	"dragonflychat/pkg/stream"
)

// The Admin SDK has no push listeners for the Realtime Database, so subscriptions poll
// the subtree with conditional ETag reads and only emit when the data changed.
type rtdbMessageRepository struct {
	client       *db.Client
	pollInterval time.Duration
}

func NewRTDBMessageRepository(client *db.Client, pollInterval time.Duration) repository.MessageRepository {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &rtdbMessageRepository{
		client:       client,
		pollInterval: pollInterval,
	}
}

func (r *rtdbMessageRepository) conversationRef(ownerID, conversationID string) *db.Ref {
	return r.client.NewRef("messages").Child(ownerID).Child(conversationID)
}

func (r *rtdbMessageRepository) Put(ctx context.Context, ownerID, conversationID string, msg *entity.Message) error {
	ref := r.conversationRef(ownerID, conversationID).Child(msg.ID)
	if err := ref.Set(ctx, msg.ToRealtime()); err != nil {
		return errors.TransientStore("Failed to write message", err)
	}
	return nil
}

func (r *rtdbMessageRepository) Get(ctx context.Context, ownerID, conversationID, messageID string) (*entity.Message, error) {
	var raw json.RawMessage
	if err := r.conversationRef(ownerID, conversationID).Child(messageID).Get(ctx, &raw); err != nil {
		return nil, errors.TransientStore("Failed to read message", err)
	}
	if isNull(raw) {
		return nil, errors.NotFound("Message", nil)
	}

	var rm entity.RealtimeMessage
	if err := json.Unmarshal(raw, &rm); err != nil {
		return nil, errors.Internal("Failed to parse message", err)
	}
	return rm.ToMessage(messageID), nil
}

// Patch runs as a transaction so a missing node fails instead of being created with only
// the edited fields.
func (r *rtdbMessageRepository) Patch(ctx context.Context, ownerID, conversationID, messageID string, edit entity.MessageEdit) error {
	ref := r.conversationRef(ownerID, conversationID).Child(messageID)

	err := ref.Transaction(ctx, func(node db.TransactionNode) (interface{}, error) {
		var current map[string]interface{}
		if err := node.Unmarshal(&current); err != nil {
			return nil, err
		}
		if current == nil {
			return nil, errors.NotFound("Message", nil)
		}

		current["content"] = edit.Content
		current["edited"] = true
		current["editedAt"] = edit.EditedAt.UnixMilli()
		return current, nil
	})
	if err != nil {
		if errors.IsNotFound(err) {
			return err
		}
		return errors.TransientStore("Failed to update message", err)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

func (r *rtdbMessageRepository) DeleteConversation(ctx context.Context, ownerID, conversationID string) error {
	if err := r.conversationRef(ownerID, conversationID).Delete(ctx); err != nil {
		return errors.TransientStore("Failed to delete messages", err)
	}
	return nil
}

func (r *rtdbMessageRepository) Watch(ctx context.Context, ownerID, conversationID string) *stream.Stream[[]*entity.Message] {
	ref := r.conversationRef(ownerID, conversationID)

	return stream.Start(ctx, func(ctx context.Context, emit func([]*entity.Message) bool) error {
		ticker := time.NewTicker(r.pollInterval)
		defer ticker.Stop()

		var etag string
		for {
			var raw map[string]json.RawMessage
			var changed bool
			var err error

			if etag == "" {
				etag, err = ref.GetWithETag(ctx, &raw)
				changed = true
			} else {
				changed, etag, err = ref.GetIfChanged(ctx, etag, &raw)
			}
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return errors.TransientStore("Failed to read messages", err)
			}

			if changed && !emit(decodeRealtimeMessages(raw)) {
				return nil
			}

			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	}, nil)
}

// decodeRealtimeMessages decodes each child on its own so a single bad record does not
// hide the rest of the conversation.
func decodeRealtimeMessages(raw map[string]json.RawMessage) []*entity.Message {
	messages := make([]*entity.Message, 0, len(raw))
	for id, data := range raw {
		var rm entity.RealtimeMessage
		if err := json.Unmarshal(data, &rm); err != nil {
			logger.Warn("Skipping malformed realtime message %s: %v", id, err)
			continue
		}
		messages = append(messages, rm.ToMessage(id))
	}
	return messages
}
