package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/internal/domain/repository"
	"dragonflychat/pkg/errors"
	"dragonflychat/pkg/stream"
)

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

func (r *firestoreConversationRepository) conversations(ownerID string) *firestore.CollectionRef {
	return r.client.Collection("users").Doc(ownerID).Collection("conversations")
}

func (r *firestoreConversationRepository) channelMessages(ownerID, conversationID string) *firestore.CollectionRef {
	return r.conversations(ownerID).Doc(conversationID).Collection("messages")
}

func decodeConversation(doc *firestore.DocumentSnapshot) (*entity.Conversation, error) {
	var conv entity.Conversation
	if err := doc.DataTo(&conv); err != nil {
		return nil, err
	}
	conv.ID = doc.Ref.ID
	return &conv, nil
}

func decodeMessage(doc *firestore.DocumentSnapshot) (*entity.Message, error) {
	var msg entity.Message
	if err := doc.DataTo(&msg); err != nil {
		return nil, err
	}
	msg.ID = doc.Ref.ID
	return &msg, nil
}

func (r *firestoreConversationRepository) Create(ctx context.Context, conv *entity.Conversation) error {
	col := r.conversations(conv.OwnerID)

	var ref *firestore.DocumentRef
	if conv.ID == "" {
		ref = col.NewDoc()
		conv.ID = ref.ID
	} else {
		ref = col.Doc(conv.ID)
	}

	if _, err := ref.Create(ctx, conv); err != nil {
		return storeError("Conversation", "create", err)
	}
	return nil
}

func (r *firestoreConversationRepository) Get(ctx context.Context, ownerID, conversationID string) (*entity.Conversation, error) {
	doc, err := r.conversations(ownerID).Doc(conversationID).Get(ctx)
	if err != nil {
		return nil, storeError("Conversation", "get", err)
	}

	conv, err := decodeConversation(doc)
	if err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}
	return conv, nil
}

func (r *firestoreConversationRepository) Touch(ctx context.Context, ownerID, conversationID string, at time.Time) error {
	_, err := r.conversations(ownerID).Doc(conversationID).Update(ctx, []firestore.Update{
		{Path: "lastUpdated", Value: at},
	})
	if err != nil {
		return storeError("Conversation", "update", err)
	}
	return nil
}

func (r *firestoreConversationRepository) Merge(ctx context.Context, ownerID, conversationID string, update entity.ConversationUpdate) error {
	data := map[string]interface{}{
		"lastUpdated": update.LastUpdated,
	}
	if update.Title != nil {
		data["title"] = *update.Title
	}
	if update.OwnerID != "" {
		data["ownerId"] = update.OwnerID
	}

	_, err := r.conversations(ownerID).Doc(conversationID).Set(ctx, data, firestore.MergeAll)
	if err != nil {
		return storeError("Conversation", "merge", err)
	}
	return nil
}

func (r *firestoreConversationRepository) Delete(ctx context.Context, ownerID, conversationID string) error {
	// Subcollections outlive their parent in Firestore, so the channel history goes first.
	iter := r.channelMessages(ownerID, conversationID).Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return storeError("Conversation messages", "list", err)
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			return storeError("Conversation message", "delete", err)
		}
	}

	if _, err := r.conversations(ownerID).Doc(conversationID).Delete(ctx); err != nil {
		return storeError("Conversation", "delete", err)
	}
	return nil
}

func (r *firestoreConversationRepository) WatchByOwner(ctx context.Context, ownerID string) *stream.Stream[[]*entity.Conversation] {
	q := r.conversations(ownerID).OrderBy("lastUpdated", firestore.Asc)
	return watchQuery(ctx, q, "conversations", decodeConversation)
}

func (r *firestoreConversationRepository) AddChannelMessage(ctx context.Context, ownerID, conversationID string, msg *entity.Message) error {
	_, err := r.channelMessages(ownerID, conversationID).Doc(msg.ID).Set(ctx, msg)
	if err != nil {
		return storeError("Channel message", "write", err)
	}
	return nil
}

func (r *firestoreConversationRepository) WatchChannelMessages(ctx context.Context, ownerID, conversationID string) *stream.Stream[[]*entity.Message] {
	q := r.channelMessages(ownerID, conversationID).OrderBy("timestamp", firestore.Asc)
	return watchQuery(ctx, q, "channel messages", decodeMessage)
}
