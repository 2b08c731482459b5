package ports

import (
	"context"

	"meetsignal/internal/core/domain"
)

// MeetingRepository is the external meeting-metadata collaborator. The
// signaling core only needs the creator identity of a meeting.
type MeetingRepository interface {
	GetByID(ctx context.Context, id domain.MeetingID) (*domain.Meeting, error)
	GetCreator(ctx context.Context, id domain.MeetingID) (domain.UserID, error)
}

// ProfileRepository is the external user-profile collaborator, consumed
// best-effort when enriching approval requests.
type ProfileRepository interface {
	GetProfile(ctx context.Context, id domain.UserID) (*domain.Profile, error)
}
