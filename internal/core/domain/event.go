package domain

import "encoding/json"

// EventType tags every frame pushed over a participant's channel. The
// set is closed: each constant below has exactly one payload shape and
// one constructor.
type EventType string

const (
	EventConnected              EventType = "connected"
	EventHostConnected          EventType = "host-connected"
	EventWaitingApproval        EventType = "waiting-approval"
	EventApprovalRequest        EventType = "approval-request"
	EventApproved               EventType = "approved"
	EventRejected               EventType = "rejected"
	EventUserJoined             EventType = "user-joined"
	EventUserLeft               EventType = "user-left"
	EventOffer                  EventType = "offer"
	EventAnswer                 EventType = "answer"
	EventICECandidate           EventType = "ice-candidate"
	EventRoomCreated            EventType = "room-created"
	EventRoomChanged            EventType = "room-changed"
	EventParticipantRoomChanged EventType = "participant-room-changed"
	EventRecordingPermission    EventType = "recording-permission"
	EventChatMessage            EventType = "chat-message"
	EventChatMessageDeleted     EventType = "chat-message-deleted"
	EventChatGlobalMuted        EventType = "chat-global-muted"
	EventChatGlobalUnmuted      EventType = "chat-global-unmuted"
	EventChatMuted              EventType = "chat-muted"
	EventChatUnmuted            EventType = "chat-unmuted"
)

// Event is one JSON frame on a push channel.
type Event struct {
	Type    EventType   `json:"type"`
	From    UserID      `json:"from,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// ConnectedPayload carries the session snapshot handed to a user who
// just became (or rejoined as) an approved participant.
type ConnectedPayload struct {
	IsHost           bool     `json:"isHost"`
	Participants     []UserID `json:"participants"`
	PendingApprovals []UserID `json:"pendingApprovals"`
	Rooms            []RoomID `json:"rooms"`
}

// ApprovalRequestPayload carries the waiting user's profile summary to
// the host. Display fields are best-effort; only UserID is guaranteed.
type ApprovalRequestPayload struct {
	UserID      UserID `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// SignalPayload is an opaque peer-negotiation payload. The core relays
// it without interpretation.
type SignalPayload struct {
	Data json.RawMessage `json:"data"`
}

type UserPayload struct {
	UserID UserID `json:"userId"`
}

type RoomPayload struct {
	RoomID RoomID `json:"roomId"`
}

type RoomMovePayload struct {
	UserID UserID `json:"userId"`
	RoomID RoomID `json:"roomId"`
}

type RecordingPermissionPayload struct {
	Allowed bool `json:"allowed"`
}

type ChatMessagePayload struct {
	MessageID string `json:"messageId"`
	Text      string `json:"text"`
}

type ChatMessageDeletedPayload struct {
	MessageID string `json:"messageId"`
}

func NewConnectedEvent(snap SessionSnapshot, userID UserID) Event {
	return Event{
		Type: EventConnected,
		Payload: ConnectedPayload{
			IsHost:           snap.HostID == userID,
			Participants:     snap.Participants,
			PendingApprovals: snap.PendingApprovals,
			Rooms:            snap.Rooms,
		},
	}
}

func NewHostConnectedEvent(hostID UserID) Event {
	return Event{Type: EventHostConnected, From: hostID}
}

func NewWaitingApprovalEvent() Event {
	return Event{Type: EventWaitingApproval}
}

func NewApprovalRequestEvent(profile Profile) Event {
	return Event{
		Type: EventApprovalRequest,
		Payload: ApprovalRequestPayload{
			UserID:      profile.UserID,
			DisplayName: profile.DisplayName,
			Email:       profile.Email,
			AvatarURL:   profile.AvatarURL,
		},
	}
}

func NewApprovedEvent() Event {
	return Event{Type: EventApproved}
}

func NewRejectedEvent() Event {
	return Event{Type: EventRejected}
}

func NewUserJoinedEvent(userID UserID) Event {
	return Event{Type: EventUserJoined, Payload: UserPayload{UserID: userID}}
}

func NewUserLeftEvent(userID UserID) Event {
	return Event{Type: EventUserLeft, Payload: UserPayload{UserID: userID}}
}

// NewSignalEvent wraps an opaque offer/answer/ice-candidate payload,
// tagged with the sender so the recipient can answer back.
func NewSignalEvent(t EventType, from UserID, data json.RawMessage) Event {
	return Event{Type: t, From: from, Payload: SignalPayload{Data: data}}
}

func NewRoomCreatedEvent(roomID RoomID) Event {
	return Event{Type: EventRoomCreated, Payload: RoomPayload{RoomID: roomID}}
}

func NewRoomChangedEvent(roomID RoomID) Event {
	return Event{Type: EventRoomChanged, Payload: RoomPayload{RoomID: roomID}}
}

func NewParticipantRoomChangedEvent(userID UserID, roomID RoomID) Event {
	return Event{Type: EventParticipantRoomChanged, Payload: RoomMovePayload{UserID: userID, RoomID: roomID}}
}

func NewRecordingPermissionEvent(allowed bool) Event {
	return Event{Type: EventRecordingPermission, Payload: RecordingPermissionPayload{Allowed: allowed}}
}

func NewChatMessageEvent(from UserID, messageID, text string) Event {
	return Event{Type: EventChatMessage, From: from, Payload: ChatMessagePayload{MessageID: messageID, Text: text}}
}

func NewChatMessageDeletedEvent(messageID string) Event {
	return Event{Type: EventChatMessageDeleted, Payload: ChatMessageDeletedPayload{MessageID: messageID}}
}

func NewChatGlobalMutedEvent() Event   { return Event{Type: EventChatGlobalMuted} }
func NewChatGlobalUnmutedEvent() Event { return Event{Type: EventChatGlobalUnmuted} }

func NewChatMutedEvent(userID UserID) Event {
	return Event{Type: EventChatMuted, Payload: UserPayload{UserID: userID}}
}

func NewChatUnmutedEvent(userID UserID) Event {
	return Event{Type: EventChatUnmuted, Payload: UserPayload{UserID: userID}}
}
