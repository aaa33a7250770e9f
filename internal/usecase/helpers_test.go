package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dragonflychat/internal/adapter/repository/memory"
	"dragonflychat/internal/domain/entity"
	"dragonflychat/internal/infrastructure/firebase"
	"dragonflychat/pkg/stream"
)

const bootstrapEmail = "root@example.com"

type fixture struct {
	users    *memory.UserRepository
	mirror   *memory.UserMirrorRepository
	convs    *memory.ConversationRepository
	inbox    *memory.AdminInboxRepository
	messages *memory.MessageRepository

	chat  *ChatUseCase
	roles *RoleUseCase
	admin *AdminChannelUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		users:    memory.NewUserRepository(),
		mirror:   memory.NewUserMirrorRepository(),
		convs:    memory.NewConversationRepository(),
		inbox:    memory.NewAdminInboxRepository(),
		messages: memory.NewMessageRepository(),
	}
	identity := firebase.NewContextIdentity()
	f.chat = NewChatUseCase(f.convs, f.messages, identity, 50*time.Millisecond)
	f.roles = NewRoleUseCase(f.users, f.mirror, identity, bootstrapEmail, 50*time.Millisecond)
	f.admin = NewAdminChannelUseCase(f.chat, f.roles, f.convs, f.inbox, identity, DefaultAdminChatID)
	return f
}

func as(uid, email string) context.Context {
	return firebase.WithIdentity(context.Background(), &entity.Identity{
		UID:         uid,
		Email:       email,
		DisplayName: uid,
	})
}

// seedUser stores a profile directly, bypassing the role model.
func (f *fixture) seedUser(t *testing.T, uid, email string, role entity.Role) context.Context {
	t.Helper()
	require.NoError(t, f.users.Create(context.Background(), &entity.User{
		ID:     uid,
		Email:  email,
		Role:   role,
		Active: true,
	}))
	return as(uid, email)
}

// awaitSnapshot reads s until match accepts a snapshot. Streams conflate, so
// intermediate snapshots may never be observed.
func awaitSnapshot[T any](t *testing.T, s *stream.Stream[T], match func(T) bool) T {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case v, ok := <-s.Updates():
			require.True(t, ok, "stream terminated: %v", s.Err())
			if match(v) {
				return v
			}
		case <-timeout:
			t.Fatal("timed out waiting for a matching snapshot")
		}
	}
}

func firstSnapshot[T any](t *testing.T, s *stream.Stream[T]) T {
	t.Helper()
	return awaitSnapshot(t, s, func(T) bool { return true })
}
