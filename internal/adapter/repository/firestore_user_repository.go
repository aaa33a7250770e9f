package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/internal/domain/repository"
	"dragonflychat/pkg/errors"
	"dragonflychat/pkg/stream"
)

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) users() *firestore.CollectionRef {
	return r.client.Collection("users")
}

func decodeUser(doc *firestore.DocumentSnapshot) (*entity.User, error) {
	var user entity.User
	if err := doc.DataTo(&user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		user.ID = doc.Ref.ID
	}
	if user.Role == "" {
		user.Role = entity.RoleUser
	}
	return &user, nil
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	doc, err := r.users().Doc(id).Get(ctx)
	if err != nil {
		return nil, storeError("User", "get", err)
	}

	user, err := decodeUser(doc)
	if err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}
	return user, nil
}

func (r *firestoreUserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	iter := r.users().Where("email", "==", email).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, errors.NotFound("User with email "+email, nil)
	}
	if err != nil {
		return nil, storeError("User", "query", err)
	}

	user, err := decodeUser(doc)
	if err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}
	return user, nil
}

func (r *firestoreUserRepository) Create(ctx context.Context, user *entity.User) error {
	// Create carries an exists=false precondition, so it never overwrites a profile.
	_, err := r.users().Doc(user.ID).Create(ctx, user)
	if err != nil {
		return storeError("User", "create", err)
	}
	return nil
}

func (r *firestoreUserRepository) UpdateRole(ctx context.Context, id string, role entity.Role) error {
	_, err := r.users().Doc(id).Update(ctx, []firestore.Update{
		{Path: "role", Value: string(role)},
	})
	if err != nil {
		return storeError("User", "update role of", err)
	}
	return nil
}

func (r *firestoreUserRepository) WatchAll(ctx context.Context) *stream.Stream[[]*entity.User] {
	return watchQuery(ctx, r.users().Query, "users", decodeUser)
}
