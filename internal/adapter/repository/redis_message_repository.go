package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/internal/domain/repository"
	"dragonflychat/pkg/errors"
	"dragonflychat/pkg/logger"
	"dragonflychat/pkg/stream"
)

// Key layout:
//   messages:{ownerId}:{conversationId}          hash, messageId -> RealtimeMessage JSON
//   messages:{ownerId}:{conversationId}:changed  pub/sub channel, one publish per write
type redisMessageRepository struct {
	client *goredis.Client
}

func NewRedisMessageRepository(client *goredis.Client) repository.MessageRepository {
	return &redisMessageRepository{
		client: client,
	}
}

func messagesKey(ownerID, conversationID string) string {
	return fmt.Sprintf("messages:%s:%s", ownerID, conversationID)
}

func changedChannel(ownerID, conversationID string) string {
	return messagesKey(ownerID, conversationID) + ":changed"
}

func (r *redisMessageRepository) Put(ctx context.Context, ownerID, conversationID string, msg *entity.Message) error {
	data, err := json.Marshal(msg.ToRealtime())
	if err != nil {
		return errors.Internal("Failed to encode message", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, messagesKey(ownerID, conversationID), msg.ID, data)
		pipe.Publish(ctx, changedChannel(ownerID, conversationID), msg.ID)
		return nil
	})
	if err != nil {
		return errors.TransientStore("Failed to write message", err)
	}
	return nil
}

func (r *redisMessageRepository) Get(ctx context.Context, ownerID, conversationID, messageID string) (*entity.Message, error) {
	raw, err := r.client.HGet(ctx, messagesKey(ownerID, conversationID), messageID).Bytes()
	if err == goredis.Nil {
		return nil, errors.NotFound("Message", nil)
	}
	if err != nil {
		return nil, errors.TransientStore("Failed to read message", err)
	}

	var rm entity.RealtimeMessage
	if err := json.Unmarshal(raw, &rm); err != nil {
		return nil, errors.Internal("Failed to parse message", err)
	}
	return rm.ToMessage(messageID), nil
}

func (r *redisMessageRepository) Patch(ctx context.Context, ownerID, conversationID, messageID string, edit entity.MessageEdit) error {
	key := messagesKey(ownerID, conversationID)

	raw, err := r.client.HGet(ctx, key, messageID).Bytes()
	if err == goredis.Nil {
		return errors.NotFound("Message", nil)
	}
	if err != nil {
		return errors.TransientStore("Failed to read message", err)
	}

	var rm entity.RealtimeMessage
	if err := json.Unmarshal(raw, &rm); err != nil {
		return errors.Internal("Failed to parse message", err)
	}
	editedAt := edit.EditedAt.UnixMilli()
	rm.Content = edit.Content
	rm.Edited = true
	rm.EditedAt = &editedAt

	data, err := json.Marshal(rm)
	if err != nil {
		return errors.Internal("Failed to encode message", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, key, messageID, data)
		pipe.Publish(ctx, changedChannel(ownerID, conversationID), messageID)
		return nil
	})
	if err != nil {
		return errors.TransientStore("Failed to update message", err)
	}
	return nil
}

func (r *redisMessageRepository) DeleteConversation(ctx context.Context, ownerID, conversationID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, messagesKey(ownerID, conversationID))
		pipe.Publish(ctx, changedChannel(ownerID, conversationID), "")
		return nil
	})
	if err != nil {
		return errors.TransientStore("Failed to delete messages", err)
	}
	return nil
}

func (r *redisMessageRepository) load(ctx context.Context, ownerID, conversationID string) ([]*entity.Message, error) {
	all, err := r.client.HGetAll(ctx, messagesKey(ownerID, conversationID)).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]*entity.Message, 0, len(all))
	for id, data := range all {
		var rm entity.RealtimeMessage
		if err := json.Unmarshal([]byte(data), &rm); err != nil {
			logger.Warn("Skipping malformed realtime message %s: %v", id, err)
			continue
		}
		messages = append(messages, rm.ToMessage(id))
	}
	return messages, nil
}

func (r *redisMessageRepository) Watch(ctx context.Context, ownerID, conversationID string) *stream.Stream[[]*entity.Message] {
	return stream.Start(ctx, func(ctx context.Context, emit func([]*entity.Message) bool) error {
		sub := r.client.Subscribe(ctx, changedChannel(ownerID, conversationID))
		defer sub.Close()

		// Wait for the subscription to be confirmed so no write slips in between the
		// initial read and the first notification.
		if _, err := sub.Receive(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.TransientStore("Failed to subscribe to messages", err)
		}

		notifications := sub.Channel(goredis.WithChannelHealthCheckInterval(30 * time.Second))
		for {
			messages, err := r.load(ctx, ownerID, conversationID)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return errors.TransientStore("Failed to read messages", err)
			}
			if !emit(messages) {
				return nil
			}

			select {
			case <-ctx.Done():
				return nil
			case _, ok := <-notifications:
				if !ok {
					return errors.TransientStore("Message subscription closed", nil)
				}
			}
		}
	}, nil)
}
