package domain

import "errors"

var (
	ErrMeetingNotFound         = errors.New("meeting not found")
	ErrSessionNotFound         = errors.New("session not found")
	ErrUserNotFound            = errors.New("user not found")
	ErrNotConnected            = errors.New("target not connected")
	ErrNotWaiting              = errors.New("user is not in the waiting room")
	ErrNotParticipant          = errors.New("user is not a participant")
	ErrForbidden               = errors.New("not authorized for this action")
	ErrChatMuted               = errors.New("chat is muted for this user")
	ErrInvalidAction           = errors.New("unknown action")
	ErrMissingField            = errors.New("missing required field")
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)
