package memory

import (
	"context"
	"sync"

	"meetsignal/internal/core/domain"
)

// MemoryMeetingRepository is an in-process meeting-metadata store used
// when redis is disabled or unreachable.
type MemoryMeetingRepository struct {
	mu       sync.RWMutex
	meetings map[domain.MeetingID]*domain.Meeting
}

func NewMemoryMeetingRepository() *MemoryMeetingRepository {
	return &MemoryMeetingRepository{
		meetings: make(map[domain.MeetingID]*domain.Meeting),
	}
}

// Put stores or replaces meeting metadata.
func (r *MemoryMeetingRepository) Put(meeting *domain.Meeting) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.meetings[meeting.ID] = meeting
}

func (r *MemoryMeetingRepository) GetByID(ctx context.Context, id domain.MeetingID) (*domain.Meeting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meeting, exists := r.meetings[id]
	if !exists {
		return nil, domain.ErrMeetingNotFound
	}
	return meeting, nil
}

func (r *MemoryMeetingRepository) GetCreator(ctx context.Context, id domain.MeetingID) (domain.UserID, error) {
	meeting, err := r.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return meeting.CreatorID, nil
}
