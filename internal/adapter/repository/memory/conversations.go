package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/pkg/errors"
	"dragonflychat/pkg/stream"
)

type convKey struct {
	owner string
	id    string
}

type ConversationRepository struct {
	mu       sync.Mutex
	convs    map[convKey]entity.Conversation
	channels map[convKey]map[string]entity.Message
	hub      *hub
}

func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{
		convs:    make(map[convKey]entity.Conversation),
		channels: make(map[convKey]map[string]entity.Message),
		hub:      newHub(),
	}
}

func (r *ConversationRepository) Create(ctx context.Context, conv *entity.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	key := convKey{conv.OwnerID, conv.ID}

	r.mu.Lock()
	if _, ok := r.convs[key]; ok {
		r.mu.Unlock()
		return errors.Conflict("Conversation already exists")
	}
	r.convs[key] = *conv
	r.mu.Unlock()

	r.hub.notify()
	return nil
}

func (r *ConversationRepository) Get(ctx context.Context, ownerID, conversationID string) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.convs[convKey{ownerID, conversationID}]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return &conv, nil
}

func (r *ConversationRepository) Touch(ctx context.Context, ownerID, conversationID string, at time.Time) error {
	key := convKey{ownerID, conversationID}

	r.mu.Lock()
	conv, ok := r.convs[key]
	if !ok {
		r.mu.Unlock()
		return errors.NotFound("Conversation", nil)
	}
	conv.LastUpdated = at
	r.convs[key] = conv
	r.mu.Unlock()

	r.hub.notify()
	return nil
}

func (r *ConversationRepository) Merge(ctx context.Context, ownerID, conversationID string, update entity.ConversationUpdate) error {
	key := convKey{ownerID, conversationID}

	r.mu.Lock()
	conv, ok := r.convs[key]
	if !ok {
		// a merge-created document carries only the merged fields
		conv = entity.Conversation{ID: conversationID}
	}
	conv.LastUpdated = update.LastUpdated
	if update.Title != nil {
		conv.Title = *update.Title
	}
	if update.OwnerID != "" {
		conv.OwnerID = update.OwnerID
	}
	r.convs[key] = conv
	r.mu.Unlock()

	r.hub.notify()
	return nil
}

func (r *ConversationRepository) Delete(ctx context.Context, ownerID, conversationID string) error {
	key := convKey{ownerID, conversationID}

	r.mu.Lock()
	delete(r.convs, key)
	delete(r.channels, key)
	r.mu.Unlock()

	r.hub.notify()
	return nil
}

func (r *ConversationRepository) WatchByOwner(ctx context.Context, ownerID string) *stream.Stream[[]*entity.Conversation] {
	return watch(ctx, r.hub, func() []*entity.Conversation {
		r.mu.Lock()
		defer r.mu.Unlock()

		out := make([]*entity.Conversation, 0)
		for key, conv := range r.convs {
			if key.owner != ownerID {
				continue
			}
			conv := conv
			out = append(out, &conv)
		}
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].LastUpdated.Equal(out[j].LastUpdated) {
				return out[i].ID < out[j].ID
			}
			return out[i].LastUpdated.Before(out[j].LastUpdated)
		})
		return out
	})
}

func (r *ConversationRepository) AddChannelMessage(ctx context.Context, ownerID, conversationID string, msg *entity.Message) error {
	key := convKey{ownerID, conversationID}

	r.mu.Lock()
	if r.channels[key] == nil {
		r.channels[key] = make(map[string]entity.Message)
	}
	r.channels[key][msg.ID] = *msg
	r.mu.Unlock()

	r.hub.notify()
	return nil
}

func (r *ConversationRepository) WatchChannelMessages(ctx context.Context, ownerID, conversationID string) *stream.Stream[[]*entity.Message] {
	key := convKey{ownerID, conversationID}
	return watch(ctx, r.hub, func() []*entity.Message {
		r.mu.Lock()
		defer r.mu.Unlock()

		out := make([]*entity.Message, 0, len(r.channels[key]))
		for _, m := range r.channels[key] {
			m := m
			out = append(out, &m)
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
		return out
	})
}

// Count returns the number of conversation documents owned by ownerID.
func (r *ConversationRepository) Count(ownerID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for key := range r.convs {
		if key.owner == ownerID {
			n++
		}
	}
	return n
}

// FailWatchers terminates every open subscription with err.
func (r *ConversationRepository) FailWatchers(err error) {
	r.hub.failAll(err)
}

func (r *ConversationRepository) ActiveListeners() int {
	return r.hub.active()
}
