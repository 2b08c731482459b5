package ports

import (
	"context"
	"time"

	"meetsignal/internal/core/domain"
)

// PushChannel is one participant's outbound channel. Implementations
// must be safe for concurrent Push calls and must make Close idempotent.
type PushChannel interface {
	Push(event domain.Event) error
	Close() error
}

// ConnectionRegistry maps a (meeting, user) identity to its live push
// channel. Registering the same identity twice supersedes the first
// channel (last writer wins).
type ConnectionRegistry interface {
	Register(meetingID domain.MeetingID, userID domain.UserID, ch PushChannel)
	// Unregister removes the identity's entry. A non-nil ch removes the
	// entry only while ch is still the registered channel, so a handler
	// unwinding a superseded connection cannot evict its replacement.
	// Returns whether an entry was removed.
	Unregister(meetingID domain.MeetingID, userID domain.UserID, ch PushChannel) bool
	Lookup(meetingID domain.MeetingID, userID domain.UserID) (PushChannel, bool)
	Send(meetingID domain.MeetingID, userID domain.UserID, event domain.Event) error
	Broadcast(meetingID domain.MeetingID, event domain.Event, predicate func(domain.UserID) bool)
	ConnectedAt(meetingID domain.MeetingID, userID domain.UserID) (time.Time, bool)
	ConnectionCount() int
	// OnDeadConnection registers the callback invoked after a failed
	// write prunes an entry. The pruned channel is passed along so the
	// handler can tell a genuine death from a superseded connection.
	OnDeadConnection(fn func(domain.MeetingID, domain.UserID, PushChannel))
}

// SessionStore owns all ephemeral per-meeting session state. Every
// operation is atomic with respect to the meeting it touches.
type SessionStore interface {
	Ensure(meetingID domain.MeetingID)
	Exists(meetingID domain.MeetingID) bool
	HostOf(meetingID domain.MeetingID) (domain.UserID, bool)
	SetHost(meetingID domain.MeetingID, userID domain.UserID)
	ClaimHost(meetingID domain.MeetingID, userID domain.UserID) bool
	JoinAsHost(meetingID domain.MeetingID, userID domain.UserID) domain.SessionSnapshot
	AddWaiting(meetingID domain.MeetingID, userID domain.UserID)
	IsParticipant(meetingID domain.MeetingID, userID domain.UserID) bool
	Approve(meetingID domain.MeetingID, userID domain.UserID) (domain.SessionSnapshot, error)
	Reject(meetingID domain.MeetingID, userID domain.UserID) error
	CreateRoom(meetingID domain.MeetingID, roomID domain.RoomID) bool
	MoveToRoom(meetingID domain.MeetingID, userID domain.UserID, roomID domain.RoomID) error
	RoomOf(meetingID domain.MeetingID, userID domain.UserID) (domain.RoomID, bool)
	SetRecordingAllowed(meetingID domain.MeetingID, userID domain.UserID, allowed bool)
	CanRecord(meetingID domain.MeetingID, actor domain.Actor) bool
	SetChatMuted(meetingID domain.MeetingID, userID domain.UserID, muted bool)
	SetGlobalChatMute(meetingID domain.MeetingID, muted bool)
	CheckChatAllowed(meetingID domain.MeetingID, actor domain.Actor) error
	Disconnect(meetingID domain.MeetingID, userID domain.UserID) (removed bool, sessionEnded bool)
	Snapshot(meetingID domain.MeetingID) (domain.SessionSnapshot, error)
}

// HostResolver decides whether a joining user is the meeting's host.
type HostResolver interface {
	Resolve(ctx context.Context, meetingID domain.MeetingID, userID domain.UserID) (hostID domain.UserID, isHost bool)
}

// JoinService orchestrates the join workflow and its inverse, the
// disconnect unwinding.
type JoinService interface {
	Join(ctx context.Context, meetingID domain.MeetingID, userID domain.UserID, ch PushChannel) error
	// Leave unwinds one connection. ch guards against superseded
	// connections: a non-nil ch that is no longer the registered channel
	// leaves session state untouched. Pass nil when the registry entry
	// is already gone, as on a prune after a failed write.
	Leave(meetingID domain.MeetingID, userID domain.UserID, ch PushChannel)
}

// RouterService applies one signaling action and delivers the
// resulting directed and broadcast events.
type RouterService interface {
	Dispatch(ctx context.Context, actor domain.Actor, req domain.ActionRequest) (map[string]interface{}, error)
}

// MetricsRecorder decouples core services from the concrete metrics
// backend. A nil-safe no-op implementation exists for tests.
type MetricsRecorder interface {
	RecordSessionStarted(meetingID domain.MeetingID)
	RecordSessionEnded(meetingID domain.MeetingID)
	RecordConnectionOpened()
	RecordConnectionClosed()
	RecordJoin(isHost bool)
	RecordWaiting(delta int)
	RecordEventPushed(eventType domain.EventType)
	RecordSendFailure()
	RecordActionDispatched(action string)
}
