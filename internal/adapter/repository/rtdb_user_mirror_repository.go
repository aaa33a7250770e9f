package repository

import (
	"context"

	"firebase.google.com/go/v4/db"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/internal/domain/repository"
	"dragonflychat/pkg/errors"
)

type rtdbUserMirrorRepository struct {
	client *db.Client
}

func NewRTDBUserMirrorRepository(client *db.Client) repository.UserMirrorRepository {
	return &rtdbUserMirrorRepository{
		client: client,
	}
}

func (r *rtdbUserMirrorRepository) Get(ctx context.Context, uid string) (*entity.UserInfo, error) {
	var info *entity.UserInfo
	if err := r.client.NewRef("users").Child(uid).Get(ctx, &info); err != nil {
		return nil, errors.TransientStore("Failed to read user info", err)
	}
	if info == nil {
		return nil, errors.NotFound("User info", nil)
	}
	return info, nil
}

func (r *rtdbUserMirrorRepository) Put(ctx context.Context, info *entity.UserInfo) error {
	if err := r.client.NewRef("users").Child(info.UID).Set(ctx, info); err != nil {
		return errors.TransientStore("Failed to write user info", err)
	}
	return nil
}
