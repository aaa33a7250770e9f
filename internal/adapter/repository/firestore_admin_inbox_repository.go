package repository

import (
	"context"

	"cloud.google.com/go/firestore"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/internal/domain/repository"
	"dragonflychat/pkg/errors"
	"dragonflychat/pkg/stream"
)

type firestoreAdminInboxRepository struct {
	client *firestore.Client
}

func NewFirestoreAdminInboxRepository(client *firestore.Client) repository.AdminInboxRepository {
	return &firestoreAdminInboxRepository{
		client: client,
	}
}

func (r *firestoreAdminInboxRepository) inbox() *firestore.CollectionRef {
	return r.client.Collection("admin_inbox")
}

func decodeMetadata(doc *firestore.DocumentSnapshot) (*entity.ConversationMetadata, error) {
	var meta entity.ConversationMetadata
	if err := doc.DataTo(&meta); err != nil {
		return nil, err
	}
	if meta.UserID == "" {
		meta.UserID = doc.Ref.ID
	}
	if meta.UnreadCount < 0 {
		meta.UnreadCount = 0
	}
	return &meta, nil
}

func (r *firestoreAdminInboxRepository) Get(ctx context.Context, userID string) (*entity.ConversationMetadata, error) {
	doc, err := r.inbox().Doc(userID).Get(ctx)
	if err != nil {
		return nil, storeError("Inbox record", "get", err)
	}

	meta, err := decodeMetadata(doc)
	if err != nil {
		return nil, errors.Internal("Failed to parse inbox record", err)
	}
	return meta, nil
}

func (r *firestoreAdminInboxRepository) RecordUserMessage(ctx context.Context, meta *entity.ConversationMetadata) error {
	data := map[string]interface{}{
		"id":                  meta.ID,
		"userId":              meta.UserID,
		"userName":            meta.UserName,
		"userEmail":           meta.UserEmail,
		"lastMessage":         meta.LastMessage,
		"lastMessageTime":     meta.LastMessageTime,
		"unreadCount":         firestore.Increment(1),
		"lastMessageFromUser": true,
		"isResolved":          false,
	}

	_, err := r.inbox().Doc(meta.UserID).Set(ctx, data, firestore.MergeAll)
	if err != nil {
		return storeError("Inbox record", "write", err)
	}
	return nil
}

func (r *firestoreAdminInboxRepository) MarkReplied(ctx context.Context, userID string) error {
	_, err := r.inbox().Doc(userID).Update(ctx, []firestore.Update{
		{Path: "unreadCount", Value: 0},
		{Path: "lastMessageFromUser", Value: false},
		{Path: "isResolved", Value: false},
	})
	if err != nil {
		return storeError("Inbox record", "update", err)
	}
	return nil
}

func (r *firestoreAdminInboxRepository) SetResolved(ctx context.Context, userID string, resolved bool) error {
	_, err := r.inbox().Doc(userID).Update(ctx, []firestore.Update{
		{Path: "isResolved", Value: resolved},
	})
	if err != nil {
		return storeError("Inbox record", "update", err)
	}
	return nil
}

func (r *firestoreAdminInboxRepository) CountUnread(ctx context.Context) (int, error) {
	docs, err := r.inbox().Where("unreadCount", ">", 0).Documents(ctx).GetAll()
	if err != nil {
		return 0, storeError("Inbox records", "count", err)
	}
	return len(docs), nil
}

func (r *firestoreAdminInboxRepository) Watch(ctx context.Context) *stream.Stream[[]*entity.ConversationMetadata] {
	q := r.inbox().OrderBy("lastMessageTime", firestore.Desc)
	return watchQuery(ctx, q, "admin inbox", decodeMetadata)
}
