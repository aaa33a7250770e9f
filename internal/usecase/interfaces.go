package usecase

import (
	"context"

	"dragonflychat/internal/domain/entity"
)

// IdentityResolver reports the signed-in caller of the current operation.
type IdentityResolver interface {
	Identity(ctx context.Context) (*entity.Identity, error)
}

type ChatbotClient interface {
	Ask(ctx context.Context, question string) (string, error)
}
