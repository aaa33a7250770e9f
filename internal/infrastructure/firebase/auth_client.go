package firebase

import (
	"context"
	"strings"

	"firebase.google.com/go/v4/auth"

	"dragonflychat/internal/domain/entity"
)

type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

// VerifyToken checks a Firebase ID token and returns the identity it was issued to.
func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (*entity.Identity, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, err
	}

	return identityFromClaims(result.UID, result.Claims), nil
}

func identityFromClaims(uid string, claims map[string]interface{}) *entity.Identity {
	id := &entity.Identity{UID: uid}
	if email, ok := claims["email"].(string); ok {
		id.Email = strings.ToLower(strings.TrimSpace(email))
	}
	if name, ok := claims["name"].(string); ok {
		id.DisplayName = name
	}
	return id
}
