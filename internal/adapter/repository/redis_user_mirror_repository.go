package repository

import (
	"context"
	"encoding/json"

	goredis "github.com/redis/go-redis/v9"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/internal/domain/repository"
	"dragonflychat/pkg/errors"
)

type redisUserMirrorRepository struct {
	client *goredis.Client
}

func NewRedisUserMirrorRepository(client *goredis.Client) repository.UserMirrorRepository {
	return &redisUserMirrorRepository{
		client: client,
	}
}

func (r *redisUserMirrorRepository) Get(ctx context.Context, uid string) (*entity.UserInfo, error) {
	data, err := r.client.Get(ctx, "users:"+uid).Bytes()
	if err == goredis.Nil {
		return nil, errors.NotFound("User info", nil)
	}
	if err != nil {
		return nil, errors.TransientStore("Failed to read user info", err)
	}

	var info entity.UserInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, errors.Internal("Failed to parse user info", err)
	}
	return &info, nil
}

func (r *redisUserMirrorRepository) Put(ctx context.Context, info *entity.UserInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return errors.Internal("Failed to encode user info", err)
	}
	if err := r.client.Set(ctx, "users:"+info.UID, data, 0).Err(); err != nil {
		return errors.TransientStore("Failed to write user info", err)
	}
	return nil
}
