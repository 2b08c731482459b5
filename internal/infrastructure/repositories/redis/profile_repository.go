package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"meetsignal/internal/core/domain"
	"meetsignal/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// RedisProfileRepository reads user display fields written by the
// account service. Records are JSON under meetsignal:profile:<id>.
type RedisProfileRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisProfileRepository(client *redis.Client) ports.ProfileRepository {
	return &RedisProfileRepository{
		client: client,
		prefix: "meetsignal:profile:",
	}
}

func (r *RedisProfileRepository) profileKey(id domain.UserID) string {
	return r.prefix + string(id)
}

func (r *RedisProfileRepository) GetProfile(ctx context.Context, id domain.UserID) (*domain.Profile, error) {
	data, err := r.client.Get(ctx, r.profileKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile from Redis: %w", err)
	}

	var profile domain.Profile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &profile, nil
}
