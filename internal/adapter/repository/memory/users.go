package memory

import (
	"context"
	"sort"
	"sync"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/pkg/errors"
	"dragonflychat/pkg/stream"
)

type UserRepository struct {
	mu     sync.Mutex
	users  map[string]entity.User
	writes int
	hub    *hub
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users: make(map[string]entity.User),
		hub:   newHub(),
	}
}

// Writes counts every successful mutation since construction.
func (r *UserRepository) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.sortedLocked() {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, errors.NotFound("User with email "+email, nil)
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	if _, ok := r.users[user.ID]; ok {
		r.mu.Unlock()
		return errors.Conflict("User already exists")
	}
	r.users[user.ID] = *user
	r.writes++
	r.mu.Unlock()

	r.hub.notify()
	return nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id string, role entity.Role) error {
	r.mu.Lock()
	u, ok := r.users[id]
	if !ok {
		r.mu.Unlock()
		return errors.NotFound("User", nil)
	}
	u.Role = role
	r.users[id] = u
	r.writes++
	r.mu.Unlock()

	r.hub.notify()
	return nil
}

func (r *UserRepository) WatchAll(ctx context.Context) *stream.Stream[[]*entity.User] {
	return watch(ctx, r.hub, func() []*entity.User {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.sortedLocked()
	})
}

func (r *UserRepository) sortedLocked() []*entity.User {
	out := make([]*entity.User, 0, len(r.users))
	for _, u := range r.users {
		u := u
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ActiveListeners reports how many WatchAll subscriptions are registered.
func (r *UserRepository) ActiveListeners() int {
	return r.hub.active()
}

type UserMirrorRepository struct {
	mu    sync.Mutex
	infos map[string]entity.UserInfo
	// FailWith, when set, makes every Put fail.
	FailWith error
}

func NewUserMirrorRepository() *UserMirrorRepository {
	return &UserMirrorRepository{infos: make(map[string]entity.UserInfo)}
}

func (r *UserMirrorRepository) Get(ctx context.Context, uid string) (*entity.UserInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.infos[uid]
	if !ok {
		return nil, errors.NotFound("User info", nil)
	}
	return &info, nil
}

func (r *UserMirrorRepository) Put(ctx context.Context, info *entity.UserInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return errors.TransientStore("Failed to write user info", r.FailWith)
	}
	r.infos[info.UID] = *info
	return nil
}
