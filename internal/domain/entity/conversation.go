package entity

import "time"

const DefaultConversationTitle = "New chat"

// Conversation is stored at users/{ownerId}/conversations/{id}.
type Conversation struct {
	ID          string    `json:"id" firestore:"-"`
	Title       string    `json:"title" firestore:"title"`
	OwnerID     string    `json:"owner_id" firestore:"ownerId"`
	LastUpdated time.Time `json:"last_updated" firestore:"lastUpdated"`
}

// ConversationUpdate is merged onto a conversation document; a nil Title or empty
// OwnerID leaves that field alone.
type ConversationUpdate struct {
	Title       *string
	OwnerID     string
	LastUpdated time.Time
}

// ConversationMetadata is one admin_inbox record per end user.
type ConversationMetadata struct {
	ID                  string `json:"id" firestore:"id"`
	UserID              string `json:"user_id" firestore:"userId"`
	UserName            string `json:"user_name" firestore:"userName"`
	UserEmail           string `json:"user_email" firestore:"userEmail"`
	LastMessage         string `json:"last_message" firestore:"lastMessage"`
	LastMessageTime     int64  `json:"last_message_time" firestore:"lastMessageTime"`
	UnreadCount         int    `json:"unread_count" firestore:"unreadCount"`
	LastMessageFromUser bool   `json:"last_message_from_user" firestore:"lastMessageFromUser"`
	IsResolved          bool   `json:"is_resolved" firestore:"isResolved"`
}
