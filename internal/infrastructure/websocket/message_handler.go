package websocket

import (
	"encoding/json"
	"time"

	"dragonflychat/pkg/logger"
	"dragonflychat/pkg/stream"
)

// WebSocket Message Types
const (
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
	MessageTypeSnapshot = "snapshot"
	MessageTypeError    = "error"
)

// WSMessage is the envelope of every frame. Snapshots carry the full current list.
type WSMessage struct {
	Type      string      `json:"type"`
	Topic     string      `json:"topic,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

func encode(msgType, topic string, data interface{}) ([]byte, error) {
	return json.Marshal(WSMessage{
		Type:      msgType,
		Topic:     topic,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func handleClientMessage(raw []byte) ([]byte, bool) {
	var msg WSMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, false
	}

	switch msg.Type {
	case MessageTypePing:
		reply, err := encode(MessageTypePong, "", nil)
		if err != nil {
			return nil, false
		}
		return reply, true
	}
	return nil, false
}

// Forward writes every snapshot of s to the client until either side ends. It closes s
// before returning, which releases the store listener behind it.
func Forward[T any](c *Client, s *stream.Stream[T]) {
	defer s.Close()
	defer c.Close()

	for {
		select {
		case <-c.Done():
			return

		case v, ok := <-s.Updates():
			if !ok {
				if err := s.Err(); err != nil {
					if frame, encErr := encode(MessageTypeError, c.Topic, err.Error()); encErr == nil {
						c.Enqueue(frame)
					}
				}
				return
			}

			frame, err := encode(MessageTypeSnapshot, c.Topic, v)
			if err != nil {
				logger.Error("Failed to encode %s snapshot: %v", c.Topic, err)
				continue
			}
			if !c.Enqueue(frame) {
				return
			}
		}
	}
}
