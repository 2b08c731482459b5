package repositories

import (
	"context"

	"meetsignal/internal/core/ports"
	"meetsignal/internal/infrastructure/repositories/memory"
	redisrepo "meetsignal/internal/infrastructure/repositories/redis"
	"meetsignal/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RepositoryFactory creates collaborator repositories with fallback
// support: redis when enabled and reachable, in-memory otherwise.
type RepositoryFactory struct {
	useRedis    bool
	redisClient *redis.Client
	logger      *zap.SugaredLogger
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		useRedis: cfg.Redis.Enabled,
		logger:   logger,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory repositories",
				"error", err,
			)
			factory.useRedis = false
		} else {
			factory.redisClient = client
			logger.Info("using Redis repositories")
		}
	}

	if !factory.useRedis {
		logger.Info("using memory repositories")
	}

	return factory, nil
}

// CreateMeetingRepository creates the meeting-metadata collaborator
func (f *RepositoryFactory) CreateMeetingRepository() ports.MeetingRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisMeetingRepository(f.redisClient)
	}
	return memory.NewMemoryMeetingRepository()
}

// CreateProfileRepository creates the user-profile collaborator
func (f *RepositoryFactory) CreateProfileRepository() ports.ProfileRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisProfileRepository(f.redisClient)
	}
	return memory.NewMemoryProfileRepository()
}

// Close closes Redis connection if used
func (f *RepositoryFactory) Close() error {
	if f.redisClient != nil {
		return redisrepo.CloseRedisClient(f.redisClient)
	}
	return nil
}

// HealthCheck checks Redis connection health
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.useRedis && f.redisClient != nil {
		return f.redisClient.Ping(ctx).Err()
	}
	return nil
}
