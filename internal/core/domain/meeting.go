package domain

import (
	"encoding/json"
	"time"
)

type MeetingID string
type UserID string
type RoomID string

// MainRoom is the room every approved participant starts in. It always
// exists for the lifetime of a session.
const MainRoom RoomID = "main"

// Actor is the authenticated caller of a signaling action.
type Actor struct {
	UserID   UserID
	Username string
	IsAdmin  bool
}

// Meeting is the slice of meeting metadata the signaling core needs
// from the external meeting store.
type Meeting struct {
	ID        MeetingID `json:"id"`
	CreatorID UserID    `json:"creator_id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Profile holds the display fields fetched best-effort from the
// external user-profile store when enriching approval requests.
type Profile struct {
	UserID      UserID `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// SessionSnapshot is a point-in-time view of one meeting's session,
// delivered to a freshly connected or approved participant.
type SessionSnapshot struct {
	MeetingID        MeetingID `json:"meeting_id"`
	HostID           UserID    `json:"host_id"`
	Participants     []UserID  `json:"participants"`
	PendingApprovals []UserID  `json:"pending_approvals"`
	Rooms            []RoomID  `json:"rooms"`
}

// ActionRequest is one request/response call against the signaling
// core, dispatched by action tag.
type ActionRequest struct {
	Action       string    `json:"action"`
	MeetingID    MeetingID `json:"meetingId"`
	TargetUserID UserID    `json:"targetUserId,omitempty"`
	RoomID       RoomID    `json:"roomId,omitempty"`
	MessageID    string    `json:"messageId,omitempty"`
	Text         string    `json:"text,omitempty"`
	Allowed      bool            `json:"allowed,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}
