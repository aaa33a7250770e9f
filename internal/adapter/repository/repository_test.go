package repository

import (
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"dragonflychat/pkg/errors"
)

func TestDecodeRealtimeMessagesSkipsMalformed(t *testing.T) {
	raw := map[string]json.RawMessage{
		"m1": json.RawMessage(`{"chatId":"c1","content":"hi","isUser":true,"timestamp":1700000000123}`),
		"m2": json.RawMessage(`"not an object"`),
		"m3": json.RawMessage(`{"chatId":"c1","content":"edited","timestamp":1700000000456,"edited":true,"editedAt":1700000000789}`),
	}

	msgs := decodeRealtimeMessages(raw)
	require.Len(t, msgs, 2)

	byID := map[string]int{}
	for i, m := range msgs {
		byID[m.ID] = i
	}
	require.Contains(t, byID, "m1")
	require.Contains(t, byID, "m3")

	first := msgs[byID["m1"]]
	assert.Equal(t, "hi", first.Content)
	assert.True(t, first.IsUser)
	assert.Equal(t, int64(1700000000123), first.Timestamp.UnixMilli())

	edited := msgs[byID["m3"]]
	assert.True(t, edited.Edited)
	require.NotNil(t, edited.EditedAt)
	assert.Equal(t, int64(1700000000789), edited.EditedAt.UnixMilli())
}

func TestDecodeRealtimeMessagesEmpty(t *testing.T) {
	msgs := decodeRealtimeMessages(nil)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestRedisKeyLayout(t *testing.T) {
	assert.Equal(t, "messages:u1:admin_support", messagesKey("u1", "admin_support"))
	assert.Equal(t, "messages:u1:admin_support:changed", changedChannel("u1", "admin_support"))
}

func TestStoreErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"not found", status.Error(codes.NotFound, "missing"), errors.CodeNotFound},
		{"already exists", status.Error(codes.AlreadyExists, "taken"), errors.CodeConflict},
		{"unavailable", status.Error(codes.Unavailable, "down"), errors.CodeTransientStore},
		{"plain error", stderrors.New("boom"), errors.CodeTransientStore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(storeError("Conversation", "get", tt.err), tt.code))
		})
	}
}

func TestIsNull(t *testing.T) {
	assert.True(t, isNull(nil))
	assert.True(t, isNull(json.RawMessage("null")))
	assert.True(t, isNull(json.RawMessage(" null\n")))
	assert.False(t, isNull(json.RawMessage(`{"content":"hi"}`)))
}
