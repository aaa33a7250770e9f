package entity

import "time"

const (
	SenderRoleUser  = "user"
	SenderRoleAdmin = "admin"
	SenderRoleBot   = "bot"
)

type Message struct {
	ID         string     `json:"id" firestore:"id"`
	ChatID     string     `json:"chat_id" firestore:"chatId"`
	IsUser     bool       `json:"is_user" firestore:"isUser"`
	Content    string     `json:"content" firestore:"content"`
	Timestamp  time.Time  `json:"timestamp" firestore:"timestamp"`
	Edited     bool       `json:"edited" firestore:"edited"`
	EditedAt   *time.Time `json:"edited_at,omitempty" firestore:"editedAt"`
	SenderUID  string     `json:"sender_uid" firestore:"senderUid"`
	SenderName string     `json:"sender_name" firestore:"senderName"`
	SenderRole string     `json:"sender_role" firestore:"senderRole"`
}

// SortKey is the ordering key used for every message list: milliseconds since epoch.
func (m *Message) SortKey() int64 {
	if m.Timestamp.IsZero() {
		return 0
	}
	return m.Timestamp.UnixMilli()
}

// MessageEdit patches a realtime message record.
type MessageEdit struct {
	Content  string
	EditedAt time.Time
}

// RealtimeMessage is the realtime-store encoding of a Message. Times are integer
// milliseconds, the only timestamp representation that store understands.
type RealtimeMessage struct {
	ID         string `json:"id"`
	ChatID     string `json:"chatId"`
	IsUser     bool   `json:"isUser"`
	Content    string `json:"content"`
	Timestamp  int64  `json:"timestamp"`
	Edited     bool   `json:"edited"`
	EditedAt   *int64 `json:"editedAt"`
	SenderUID  string `json:"senderUid"`
	SenderName string `json:"senderName"`
	SenderRole string `json:"senderRole"`
}

func (m *Message) ToRealtime() RealtimeMessage {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	rm := RealtimeMessage{
		ID:         m.ID,
		ChatID:     m.ChatID,
		IsUser:     m.IsUser,
		Content:    m.Content,
		Timestamp:  ts.UnixMilli(),
		Edited:     m.Edited,
		SenderUID:  m.SenderUID,
		SenderName: m.SenderName,
		SenderRole: m.SenderRole,
	}
	if m.EditedAt != nil {
		ms := m.EditedAt.UnixMilli()
		rm.EditedAt = &ms
	}
	return rm
}

// ToMessage decodes a realtime record stored under key id.
func (rm RealtimeMessage) ToMessage(id string) *Message {
	m := &Message{
		ID:         id,
		ChatID:     rm.ChatID,
		IsUser:     rm.IsUser,
		Content:    rm.Content,
		Edited:     rm.Edited,
		SenderUID:  rm.SenderUID,
		SenderName: rm.SenderName,
		SenderRole: rm.SenderRole,
	}
	if m.SenderRole == "" {
		m.SenderRole = SenderRoleUser
	}
	if rm.Timestamp != 0 {
		m.Timestamp = time.UnixMilli(rm.Timestamp).UTC()
	}
	if rm.EditedAt != nil {
		t := time.UnixMilli(*rm.EditedAt).UTC()
		m.EditedAt = &t
	}
	return m
}
