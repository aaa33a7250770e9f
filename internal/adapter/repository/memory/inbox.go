package memory

import (
	"context"
	"sort"
	"sync"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/pkg/errors"
	"dragonflychat/pkg/stream"
)

type AdminInboxRepository struct {
	mu      sync.Mutex
	records map[string]entity.ConversationMetadata
	hub     *hub
}

func NewAdminInboxRepository() *AdminInboxRepository {
	return &AdminInboxRepository{
		records: make(map[string]entity.ConversationMetadata),
		hub:     newHub(),
	}
}

func (r *AdminInboxRepository) Get(ctx context.Context, userID string) (*entity.ConversationMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	meta, ok := r.records[userID]
	if !ok {
		return nil, errors.NotFound("Inbox record", nil)
	}
	return &meta, nil
}

func (r *AdminInboxRepository) RecordUserMessage(ctx context.Context, meta *entity.ConversationMetadata) error {
	r.mu.Lock()
	current := r.records[meta.UserID]
	next := *meta
	next.UnreadCount = current.UnreadCount + 1
	next.LastMessageFromUser = true
	next.IsResolved = false
	r.records[meta.UserID] = next
	r.mu.Unlock()

	r.hub.notify()
	return nil
}

func (r *AdminInboxRepository) MarkReplied(ctx context.Context, userID string) error {
	r.mu.Lock()
	meta, ok := r.records[userID]
	if !ok {
		r.mu.Unlock()
		return errors.NotFound("Inbox record", nil)
	}
	meta.UnreadCount = 0
	meta.LastMessageFromUser = false
	meta.IsResolved = false
	r.records[userID] = meta
	r.mu.Unlock()

	r.hub.notify()
	return nil
}

func (r *AdminInboxRepository) SetResolved(ctx context.Context, userID string, resolved bool) error {
	r.mu.Lock()
	meta, ok := r.records[userID]
	if !ok {
		r.mu.Unlock()
		return errors.NotFound("Inbox record", nil)
	}
	meta.IsResolved = resolved
	r.records[userID] = meta
	r.mu.Unlock()

	r.hub.notify()
	return nil
}

func (r *AdminInboxRepository) CountUnread(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, meta := range r.records {
		if meta.UnreadCount > 0 {
			n++
		}
	}
	return n, nil
}

func (r *AdminInboxRepository) Watch(ctx context.Context) *stream.Stream[[]*entity.ConversationMetadata] {
	return watch(ctx, r.hub, func() []*entity.ConversationMetadata {
		r.mu.Lock()
		defer r.mu.Unlock()

		out := make([]*entity.ConversationMetadata, 0, len(r.records))
		for _, meta := range r.records {
			meta := meta
			out = append(out, &meta)
		}
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].LastMessageTime == out[j].LastMessageTime {
				return out[i].UserID < out[j].UserID
			}
			return out[i].LastMessageTime > out[j].LastMessageTime
		})
		return out
	})
}

func (r *AdminInboxRepository) ActiveListeners() int {
	return r.hub.active()
}
