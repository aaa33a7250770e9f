package firebase

import (
	"context"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/pkg/errors"
)

type identityKey struct{}

// WithIdentity returns a context carrying the authenticated caller.
func WithIdentity(ctx context.Context, id *entity.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (*entity.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*entity.Identity)
	return id, ok && id.Authenticated()
}

// ContextIdentity resolves the caller from the request context populated by the auth
// middleware.
type ContextIdentity struct{}

func NewContextIdentity() ContextIdentity {
	return ContextIdentity{}
}

func (ContextIdentity) Identity(ctx context.Context) (*entity.Identity, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return nil, errors.NotAuthenticated("No signed-in user")
	}
	return id, nil
}
