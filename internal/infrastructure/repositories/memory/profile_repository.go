package memory

import (
	"context"
	"sync"

	"meetsignal/internal/core/domain"
)

// MemoryProfileRepository is an in-process user-profile store used when
// redis is disabled or unreachable.
type MemoryProfileRepository struct {
	mu       sync.RWMutex
	profiles map[domain.UserID]*domain.Profile
}

func NewMemoryProfileRepository() *MemoryProfileRepository {
	return &MemoryProfileRepository{
		profiles: make(map[domain.UserID]*domain.Profile),
	}
}

// Put stores or replaces a profile.
func (r *MemoryProfileRepository) Put(profile *domain.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile.UserID] = profile
}

func (r *MemoryProfileRepository) GetProfile(ctx context.Context, id domain.UserID) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, exists := r.profiles[id]
	if !exists {
		return nil, domain.ErrUserNotFound
	}
	return profile, nil
}
