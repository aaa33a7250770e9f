package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/pkg/errors"
)

func TestGetOrCreateAdminChat_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := as("alice", "alice@example.com")

	id, err := f.admin.GetOrCreateAdminChat(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultAdminChatID, id)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.admin.GetOrCreateAdminChat(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.convs.Count("alice"))
	conv, err := f.chat.GetConversation(ctx, DefaultAdminChatID)
	require.NoError(t, err)
	assert.Equal(t, AdminChatTitle, conv.Title)
}

func TestSupportScenario(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice", "alice@example.com", entity.RoleUser)
	boss := f.seedUser(t, "boss", "boss@example.com", entity.RoleAdmin)

	_, err := f.admin.SendUserMessageToAdmin(alice, &entity.Message{Content: "hello"})
	require.NoError(t, err)

	meta, err := f.inbox.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, meta.UnreadCount)
	assert.True(t, meta.LastMessageFromUser)
	assert.False(t, meta.IsResolved)
	assert.Equal(t, "hello", meta.LastMessage)
	assert.Equal(t, "alice@example.com", meta.UserEmail)

	reply, err := f.admin.SendAdminReply(boss, "alice", &entity.Message{Content: "hi"})
	require.NoError(t, err)
	assert.False(t, reply.IsUser)
	assert.Equal(t, entity.SenderRoleAdmin, reply.SenderRole)

	meta, err = f.inbox.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, meta.UnreadCount)
	assert.False(t, meta.LastMessageFromUser)

	s, err := f.chat.ListMessages(alice, DefaultAdminChatID)
	require.NoError(t, err)
	defer s.Close()

	msgs := awaitSnapshot(t, s, func(m []*entity.Message) bool { return len(m) == 2 })
	assert.Equal(t, "hello", msgs[0].Content)
	assert.True(t, msgs[0].IsUser)
	assert.Equal(t, "hi", msgs[1].Content)
	assert.Equal(t, "boss", msgs[1].SenderUID)

	// the admin never got a support channel of their own
	assert.Equal(t, 0, f.messages.Len("boss", DefaultAdminChatID))
}

func TestSendAdminReply_ReplicatesHistory(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice", "alice@example.com", entity.RoleUser)
	boss := f.seedUser(t, "boss", "boss@example.com", entity.RoleAdmin)

	reply, err := f.admin.SendAdminReply(boss, "alice", &entity.Message{Content: "we are on it"})
	require.NoError(t, err)

	history, err := f.admin.ListChannelHistory(alice, "")
	require.NoError(t, err)
	defer history.Close()

	msgs := awaitSnapshot(t, history, func(m []*entity.Message) bool { return len(m) == 1 })
	assert.Equal(t, reply.ID, msgs[0].ID)
	assert.Equal(t, "we are on it", msgs[0].Content)

	_, err = f.admin.ListChannelHistory(as("mallory", "m@example.com"), "alice")
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))
}

func TestSendAdminReply_NonAdmin(t *testing.T) {
	f := newFixture(t)
	mallory := f.seedUser(t, "mallory", "mallory@example.com", entity.RoleUser)

	_, err := f.admin.SendAdminReply(mallory, "alice", &entity.Message{Content: "fake"})
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))
	assert.Equal(t, 0, f.messages.Len("alice", DefaultAdminChatID))

	_, err = f.admin.SendAdminReply(context.Background(), "alice", &entity.Message{Content: "fake"})
	assert.True(t, errors.Is(err, errors.CodeNotAuthenticated))
}

func TestUpdateConversationMetadata_ConcurrentSends(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice", "alice@example.com", entity.RoleUser)

	const sends = 25
	var wg sync.WaitGroup
	for i := 0; i < sends; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.admin.SendUserMessageToAdmin(alice, &entity.Message{Content: fmt.Sprintf("msg %d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	meta, err := f.inbox.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, sends, meta.UnreadCount)
	assert.Equal(t, sends, f.messages.Len("alice", DefaultAdminChatID))
}

func TestUpdateConversationMetadata_OtherUser(t *testing.T) {
	f := newFixture(t)
	mallory := f.seedUser(t, "mallory", "mallory@example.com", entity.RoleUser)

	err := f.admin.UpdateConversationMetadata(mallory, "alice", "Alice", "alice@example.com", "spoof")
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))
	_, err = f.inbox.Get(context.Background(), "alice")
	assert.True(t, errors.IsNotFound(err))
}

func TestAdminInbox(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice", "alice@example.com", entity.RoleUser)
	bob := f.seedUser(t, "bob", "bob@example.com", entity.RoleUser)
	boss := f.seedUser(t, "boss", "boss@example.com", entity.RoleAdmin)

	_, err := f.admin.ListAdminInbox(alice)
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))

	_, err = f.admin.SendUserMessageToAdmin(alice, &entity.Message{Content: "first"})
	require.NoError(t, err)
	_, err = f.admin.SendUserMessageToAdmin(bob, &entity.Message{Content: "second"})
	require.NoError(t, err)

	s, err := f.admin.ListAdminInbox(boss)
	require.NoError(t, err)
	defer s.Close()

	records := awaitSnapshot(t, s, func(r []*entity.ConversationMetadata) bool { return len(r) == 2 })
	assert.Equal(t, "bob", records[0].UserID)
	assert.Equal(t, "alice", records[1].UserID)

	count, err := f.admin.AdminUnreadCount(boss)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, f.admin.MarkConversationAsReplied(boss, "bob"))
	require.NoError(t, f.admin.CloseConversation(boss, "alice"))

	count, err = f.admin.AdminUnreadCount(boss)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	records = awaitSnapshot(t, s, func(r []*entity.ConversationMetadata) bool {
		return len(r) == 2 && r[1].IsResolved
	})
	assert.Equal(t, 0, records[0].UnreadCount)

	// a new message reopens a resolved conversation
	_, err = f.admin.SendUserMessageToAdmin(alice, &entity.Message{Content: "again"})
	require.NoError(t, err)
	meta, err := f.inbox.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, meta.IsResolved)
	assert.Equal(t, 2, meta.UnreadCount)

	err = f.admin.CloseConversation(boss, "nobody")
	assert.True(t, errors.IsNotFound(err))
}

func TestListUserChannel(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice", "alice@example.com", entity.RoleUser)
	boss := f.seedUser(t, "boss", "boss@example.com", entity.RoleAdmin)

	_, err := f.admin.SendUserMessageToAdmin(alice, &entity.Message{Content: "help"})
	require.NoError(t, err)

	_, err = f.admin.ListUserChannel(alice, "bob")
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))

	s, err := f.admin.ListUserChannel(boss, "alice")
	require.NoError(t, err)
	defer s.Close()
	msgs := awaitSnapshot(t, s, func(m []*entity.Message) bool { return len(m) == 1 })
	assert.Equal(t, "help", msgs[0].Content)

	own, err := f.admin.ListAdminMessages(alice)
	require.NoError(t, err)
	defer own.Close()
	msgs = awaitSnapshot(t, own, func(m []*entity.Message) bool { return len(m) == 1 })
	assert.Equal(t, "alice", msgs[0].SenderUID)
}
