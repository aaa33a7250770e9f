package usecase

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/pkg/errors"
)

func TestEnsureUserExists_SecondCallWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := as("alice", "alice@example.com")

	created, err := f.roles.EnsureUserExists(ctx)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, f.users.Writes())
	assert.Equal(t, entity.RoleUser, f.roles.GetRole(ctx, ""))

	// promote, then sign in again
	require.NoError(t, f.users.UpdateRole(context.Background(), "alice", entity.RoleAdmin))
	writes := f.users.Writes()

	created, err = f.roles.EnsureUserExists(ctx)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, writes, f.users.Writes())
	assert.Equal(t, entity.RoleAdmin, f.roles.GetRole(ctx, "alice"))
}

func TestEnsureUserExists_MirrorsNewProfile(t *testing.T) {
	f := newFixture(t)

	_, err := f.roles.EnsureUserExists(as("root", bootstrapEmail))
	require.NoError(t, err)

	user, err := f.users.GetByID(context.Background(), "root")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, user.Role)
	assert.True(t, user.Active)

	info, err := f.mirror.Get(context.Background(), "root")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, info.Role)
}

func TestEnsureUserExists_Unauthenticated(t *testing.T) {
	f := newFixture(t)
	_, err := f.roles.EnsureUserExists(context.Background())
	assert.True(t, errors.Is(err, errors.CodeNotAuthenticated))
	assert.Equal(t, 0, f.users.Writes())
}

func TestIsAdmin(t *testing.T) {
	f := newFixture(t)

	t.Run("bootstrap email without profile", func(t *testing.T) {
		assert.True(t, f.roles.IsAdmin(as("root", bootstrapEmail)))
	})
	t.Run("bootstrap email with user role", func(t *testing.T) {
		ctx := f.seedUser(t, "root2", "ROOT@example.com", entity.RoleUser)
		assert.True(t, f.roles.IsAdmin(ctx))
	})
	t.Run("stored admin", func(t *testing.T) {
		assert.True(t, f.roles.IsAdmin(f.seedUser(t, "boss", "boss@example.com", entity.RoleAdmin)))
	})
	t.Run("stored user", func(t *testing.T) {
		assert.False(t, f.roles.IsAdmin(f.seedUser(t, "joe", "joe@example.com", entity.RoleUser)))
	})
	t.Run("no profile", func(t *testing.T) {
		assert.False(t, f.roles.IsAdmin(as("nobody", "nobody@example.com")))
	})
	t.Run("unauthenticated", func(t *testing.T) {
		assert.False(t, f.roles.IsAdmin(context.Background()))
	})
}

func TestIsAdmin_BootstrapDisabled(t *testing.T) {
	f := newFixture(t)
	roles := NewRoleUseCase(f.users, f.mirror, f.roles.identity, "", 0)
	assert.False(t, roles.IsAdmin(as("root", bootstrapEmail)))
}

func TestSetRoleByEmail_NonAdminRejected(t *testing.T) {
	f := newFixture(t)
	mallory := f.seedUser(t, "mallory", "mallory@example.com", entity.RoleUser)
	f.seedUser(t, "victim", "victim@example.com", entity.RoleAdmin)

	for _, role := range []string{"user", "admin", "superuser"} {
		err := f.roles.SetRoleByEmail(mallory, "victim@example.com", role)
		assert.True(t, errors.Is(err, errors.CodeUnauthorized), role)
		err = f.roles.SetRoleByEmail(mallory, "mallory@example.com", role)
		assert.True(t, errors.Is(err, errors.CodeUnauthorized), role)
	}

	assert.Equal(t, entity.RoleAdmin, f.roles.GetRole(mallory, "victim"))
	assert.Equal(t, entity.RoleUser, f.roles.GetRole(mallory, "mallory"))
}

func TestSetRoleByEmail_Admin(t *testing.T) {
	f := newFixture(t)
	boss := f.seedUser(t, "boss", "boss@example.com", entity.RoleAdmin)
	f.seedUser(t, "joe", "joe@example.com", entity.RoleUser)

	err := f.roles.SetRoleByEmail(boss, "joe@example.com", "owner")
	assert.True(t, errors.Is(err, errors.CodeInvalidArgument))

	err = f.roles.SetRoleByEmail(boss, "ghost@example.com", "admin")
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, f.roles.SetRoleByEmail(boss, " Joe@Example.com ", "admin"))
	assert.Equal(t, entity.RoleAdmin, f.roles.GetRole(boss, "joe"))

	info, err := f.mirror.Get(context.Background(), "joe")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, info.Role)
}

func TestSetRoleByEmail_MirrorFailureIgnored(t *testing.T) {
	f := newFixture(t)
	boss := f.seedUser(t, "boss", "boss@example.com", entity.RoleAdmin)
	f.seedUser(t, "joe", "joe@example.com", entity.RoleUser)
	f.mirror.FailWith = stderrors.New("offline")

	require.NoError(t, f.roles.SetRoleByEmail(boss, "joe@example.com", "admin"))
	assert.Equal(t, entity.RoleAdmin, f.roles.GetRole(boss, "joe"))
}

func TestReplicateUserInfo_NoDowngrade(t *testing.T) {
	f := newFixture(t)
	ctx := f.seedUser(t, "boss", "boss@example.com", entity.RoleAdmin)
	f.seedUser(t, "joe", "joe@example.com", entity.RoleUser)

	f.roles.ReplicateUserInfo(ctx, "boss", "Boss", "boss@example.com", entity.RoleUser)
	info, err := f.mirror.Get(ctx, "boss")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, info.Role)
	assert.Equal(t, "Boss", info.DisplayName)

	f.roles.ReplicateUserInfo(ctx, "joe", "Joe", "joe@example.com", entity.RoleUser)
	info, err = f.mirror.Get(ctx, "joe")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleUser, info.Role)

	f.mirror.FailWith = stderrors.New("offline")
	assert.NotPanics(t, func() {
		f.roles.ReplicateUserInfo(ctx, "joe", "Joe", "joe@example.com", entity.RoleUser)
	})
}

func TestGetRole_Defaults(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, entity.RoleUser, f.roles.GetRole(context.Background(), ""))
	assert.Equal(t, entity.RoleUser, f.roles.GetRole(context.Background(), "missing"))
}

func TestListUsers(t *testing.T) {
	f := newFixture(t)
	joe := f.seedUser(t, "joe", "joe@example.com", entity.RoleUser)
	boss := f.seedUser(t, "boss", "boss@example.com", entity.RoleAdmin)

	_, err := f.roles.ListUsers(joe)
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))

	s, err := f.roles.ListUsers(boss)
	require.NoError(t, err)
	defer s.Close()

	users := awaitSnapshot(t, s, func(u []*entity.User) bool { return len(u) == 2 })
	assert.Equal(t, "boss", users[0].ID)

	require.NoError(t, f.roles.SetRoleByEmail(boss, "joe@example.com", "admin"))
	awaitSnapshot(t, s, func(u []*entity.User) bool { return len(u) == 2 && u[1].IsAdmin() })
}
