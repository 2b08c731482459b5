package memory

import (
	"context"
	"testing"

	"meetsignal/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeetingRepository(t *testing.T) {
	repo := NewMemoryMeetingRepository()
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrMeetingNotFound)

	_, err = repo.GetCreator(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrMeetingNotFound)

	repo.Put(&domain.Meeting{ID: "meeting-1", CreatorID: "host-1", Title: "standup"})

	meeting, err := repo.GetByID(ctx, "meeting-1")
	require.NoError(t, err)
	assert.Equal(t, "standup", meeting.Title)

	creator, err := repo.GetCreator(ctx, "meeting-1")
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("host-1"), creator)
}

func TestProfileRepository(t *testing.T) {
	repo := NewMemoryProfileRepository()
	ctx := context.Background()

	_, err := repo.GetProfile(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	repo.Put(&domain.Profile{UserID: "user-1", DisplayName: "Alice"})

	profile, err := repo.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.DisplayName)
}
