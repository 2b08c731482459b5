package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"meetsignal/internal/core/domain"
	"meetsignal/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// RedisMeetingRepository reads meeting metadata written by the meeting
// management service. Records are JSON under meetsignal:meeting:<id>.
type RedisMeetingRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisMeetingRepository(client *redis.Client) ports.MeetingRepository {
	return &RedisMeetingRepository{
		client: client,
		prefix: "meetsignal:meeting:",
	}
}

func (r *RedisMeetingRepository) meetingKey(id domain.MeetingID) string {
	return r.prefix + string(id)
}

func (r *RedisMeetingRepository) GetByID(ctx context.Context, id domain.MeetingID) (*domain.Meeting, error) {
	data, err := r.client.Get(ctx, r.meetingKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrMeetingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting from Redis: %w", err)
	}

	var meeting domain.Meeting
	if err := json.Unmarshal([]byte(data), &meeting); err != nil {
		return nil, fmt.Errorf("failed to unmarshal meeting: %w", err)
	}
	return &meeting, nil
}

func (r *RedisMeetingRepository) GetCreator(ctx context.Context, id domain.MeetingID) (domain.UserID, error) {
	meeting, err := r.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return meeting.CreatorID, nil
}

// Put stores meeting metadata. The signaling core itself never writes
// meetings; this exists for tooling and tests.
func (r *RedisMeetingRepository) Put(ctx context.Context, meeting *domain.Meeting) error {
	data, err := json.Marshal(meeting)
	if err != nil {
		return fmt.Errorf("failed to marshal meeting: %w", err)
	}
	if err := r.client.Set(ctx, r.meetingKey(meeting.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set meeting in Redis: %w", err)
	}
	return nil
}
