package repository

import (
	"context"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/pkg/stream"
)

// UserRepository reads and writes profile documents in the document store.
// It is the authoritative source for roles.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// Create writes a new profile and fails with CONFLICT if one already exists.
	Create(ctx context.Context, user *entity.User) error
	UpdateRole(ctx context.Context, id string, role entity.Role) error
	WatchAll(ctx context.Context) *stream.Stream[[]*entity.User]
}

// UserMirrorRepository is the realtime-store copy of profile fields used by chat UIs.
// Writes are best-effort; UserRepository stays authoritative.
type UserMirrorRepository interface {
	Get(ctx context.Context, uid string) (*entity.UserInfo, error)
	Put(ctx context.Context, info *entity.UserInfo) error
}
