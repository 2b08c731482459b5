package services

import (
	"context"
	"encoding/json"
	"testing"

	"meetsignal/internal/core/domain"
	"meetsignal/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routerFixture struct {
	registry ports.ConnectionRegistry
	store    ports.SessionStore
	router   ports.RouterService

	hostCh  *fakeChannel
	guestCh *fakeChannel
}

// newRouterFixture builds a live session with a connected host and one
// connected guest in the waiting room.
func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	registry := NewConnectionRegistry(nil, nil)
	store := NewSessionStore(nil, nil)
	router := NewRouterService(registry, store, nil, nil)

	store.Ensure(testMeeting)
	store.SetHost(testMeeting, testHost)
	store.JoinAsHost(testMeeting, testHost)
	store.AddWaiting(testMeeting, testGuest)

	f := &routerFixture{
		registry: registry,
		store:    store,
		router:   router,
		hostCh:   newFakeChannel(),
		guestCh:  newFakeChannel(),
	}
	registry.Register(testMeeting, testHost, f.hostCh)
	registry.Register(testMeeting, testGuest, f.guestCh)
	return f
}

func (f *routerFixture) hostActor() domain.Actor  { return domain.Actor{UserID: testHost} }
func (f *routerFixture) guestActor() domain.Actor { return domain.Actor{UserID: testGuest} }

func TestRouter_MissingMeetingID(t *testing.T) {
	f := newRouterFixture(t)

	_, err := f.router.Dispatch(context.Background(), f.hostActor(), domain.ActionRequest{
		Action: ActionChatMessage,
	})
	assert.ErrorIs(t, err, domain.ErrMissingField)
}

func TestRouter_UnknownAction(t *testing.T) {
	f := newRouterFixture(t)

	_, err := f.router.Dispatch(context.Background(), f.hostActor(), domain.ActionRequest{
		Action:    "self-destruct",
		MeetingID: testMeeting,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAction)
}

func TestRouter_SignalRelay(t *testing.T) {
	f := newRouterFixture(t)
	payload := json.RawMessage(`{"sdp":"v=0"}`)

	result, err := f.router.Dispatch(context.Background(), f.guestActor(), domain.ActionRequest{
		Action:       ActionOffer,
		MeetingID:    testMeeting,
		TargetUserID: testHost,
		Data:         payload,
	})
	require.NoError(t, err)
	assert.Equal(t, true, result["success"])

	events := f.hostCh.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventOffer, events[0].Type)
	assert.Equal(t, testGuest, events[0].From)

	signal, ok := events[0].Payload.(domain.SignalPayload)
	require.True(t, ok)
	assert.JSONEq(t, `{"sdp":"v=0"}`, string(signal.Data))
}

func TestRouter_SignalRelayTargetNotConnected(t *testing.T) {
	f := newRouterFixture(t)

	_, err := f.router.Dispatch(context.Background(), f.hostActor(), domain.ActionRequest{
		Action:       ActionAnswer,
		MeetingID:    testMeeting,
		TargetUserID: "offline-user",
	})
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestRouter_SignalRelayMissingTarget(t *testing.T) {
	f := newRouterFixture(t)

	_, err := f.router.Dispatch(context.Background(), f.hostActor(), domain.ActionRequest{
		Action:    ActionICECandidate,
		MeetingID: testMeeting,
	})
	assert.ErrorIs(t, err, domain.ErrMissingField)
}

func TestRouter_ApproveParticipant(t *testing.T) {
	f := newRouterFixture(t)

	result, err := f.router.Dispatch(context.Background(), f.hostActor(), domain.ActionRequest{
		Action:       ActionApproveParticipant,
		MeetingID:    testMeeting,
		TargetUserID: testGuest,
	})
	require.NoError(t, err)
	assert.Equal(t, true, result["success"])

	// The approved guest gets the approval, then its snapshot, then the
	// meeting-wide join announcement.
	assert.Equal(t, []domain.EventType{
		domain.EventApproved,
		domain.EventConnected,
		domain.EventUserJoined,
	}, f.guestCh.EventTypes())

	guestEvents := f.guestCh.Events()
	payload, ok := guestEvents[1].Payload.(domain.ConnectedPayload)
	require.True(t, ok)
	assert.False(t, payload.IsHost)
	assert.ElementsMatch(t, []domain.UserID{testHost, testGuest}, payload.Participants)

	assert.Equal(t, []domain.EventType{domain.EventUserJoined}, f.hostCh.EventTypes())
	assert.True(t, f.store.IsParticipant(testMeeting, testGuest))
}

func TestRouter_ApproveRequiresHostOrAdmin(t *testing.T) {
	f := newRouterFixture(t)

	_, err := f.router.Dispatch(context.Background(), f.guestActor(), domain.ActionRequest{
		Action:       ActionApproveParticipant,
		MeetingID:    testMeeting,
		TargetUserID: testGuest,
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// An admin who is not the host may approve.
	_, err = f.router.Dispatch(context.Background(), domain.Actor{UserID: "admin-1", IsAdmin: true}, domain.ActionRequest{
		Action:       ActionApproveParticipant,
		MeetingID:    testMeeting,
		TargetUserID: testGuest,
	})
	assert.NoError(t, err)
}

func TestRouter_ApproveNotWaiting(t *testing.T) {
	f := newRouterFixture(t)

	_, err := f.router.Dispatch(context.Background(), f.hostActor(), domain.ActionRequest{
		Action:       ActionApproveParticipant,
		MeetingID:    testMeeting,
		TargetUserID: "never-joined",
	})
	assert.ErrorIs(t, err, domain.ErrNotWaiting)
}

func TestRouter_RejectParticipant(t *testing.T) {
	f := newRouterFixture(t)

	_, err := f.router.Dispatch(context.Background(), f.hostActor(), domain.ActionRequest{
		Action:       ActionRejectParticipant,
		MeetingID:    testMeeting,
		TargetUserID: testGuest,
	})
	require.NoError(t, err)

	assert.Equal(t, []domain.EventType{domain.EventRejected}, f.guestCh.EventTypes())
	assert.False(t, f.store.IsParticipant(testMeeting, testGuest))

	snap, err := f.store.Snapshot(testMeeting)
	require.NoError(t, err)
	assert.Empty(t, snap.PendingApprovals)
}

func TestRouter_CreateRoom(t *testing.T) {
	f := newRouterFixture(t)

	result, err := f.router.Dispatch(context.Background(), f.hostActor(), domain.ActionRequest{
		Action:    ActionCreateRoom,
		MeetingID: testMeeting,
		RoomID:    "breakout-1",
	})
	require.NoError(t, err)
	assert.Equal(t, true, result["created"])
	assert.Equal(t, []domain.EventType{domain.EventRoomCreated}, f.hostCh.EventTypes())

	// Creating the same room again succeeds but announces nothing.
	result, err = f.router.Dispatch(context.Background(), f.hostActor(), domain.ActionRequest{
		Action:    ActionCreateRoom,
		MeetingID: testMeeting,
		RoomID:    "breakout-1",
	})
	require.NoError(t, err)
	assert.Equal(t, false, result["created"])
	assert.Len(t, f.hostCh.Events(), 1)
}

func TestRouter_MoveSelfToRoom(t *testing.T) {
	f := newRouterFixture(t)

	_, err := f.router.Dispatch(context.Background(), f.hostActor(), domain.ActionRequest{
		Action:       ActionMoveToRoom,
		MeetingID:    testMeeting,
		TargetUserID: testHost,
		RoomID:       "breakout-1",
	})
	require.NoError(t, err)

	room, ok := f.store.RoomOf(testMeeting, testHost)
	require.True(t, ok)
	assert.Equal(t, domain.RoomID("breakout-1"), room)

	assert.Equal(t, []domain.EventType{
		domain.EventRoomChanged,
		domain.EventParticipantRoomChanged,
	}, f.hostCh.EventTypes())
}

func TestRouter_MoveOtherRequiresHostOrAdmin(t *testing.T) {
	f := newRouterFixture(t)

	_, err := f.router.Dispatch(context.Background(), f.guestActor(), domain.ActionRequest{
		Action:       ActionMoveToRoom,
		MeetingID:    testMeeting,
		TargetUserID: testHost,
		RoomID:       "breakout-1",
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRouter_MoveWaitingUserFails(t *testing.T) {
	f := newRouterFixture(t)

	_, err := f.router.Dispatch(context.Background(), f.hostActor(), domain.ActionRequest{
		Action:       ActionMoveToRoom,
		MeetingID:    testMeeting,
		TargetUserID: testGuest,
		RoomID:       "breakout-1",
	})
	assert.ErrorIs(t, err, domain.ErrNotParticipant)
}

func TestRouter_SetRecordingPermission(t *testing.T) {
	f := newRouterFixture(t)

	_, err := f.router.Dispatch(context.Background(), f.hostActor(), domain.ActionRequest{
		Action:       ActionSetRecordingPermission,
		MeetingID:    testMeeting,
		TargetUserID: testGuest,
		Allowed:      true,
	})
	require.NoError(t, err)

	assert.True(t, f.store.CanRecord(testMeeting, f.guestActor()))

	events := f.guestCh.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventRecordingPermission, events[0].Type)
	payload, ok := events[0].Payload.(domain.RecordingPermissionPayload)
	require.True(t, ok)
	assert.True(t, payload.Allowed)
}

func TestRouter_ChatMessageBroadcasts(t *testing.T) {
	f := newRouterFixture(t)

	result, err := f.router.Dispatch(context.Background(), f.hostActor(), domain.ActionRequest{
		Action:    ActionChatMessage,
		MeetingID: testMeeting,
		Text:      "hello everyone",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result["messageId"])

	for _, ch := range []*fakeChannel{f.hostCh, f.guestCh} {
		events := ch.Events()
		require.Len(t, events, 1)
		assert.Equal(t, domain.EventChatMessage, events[0].Type)
		assert.Equal(t, testHost, events[0].From)
		payload, ok := events[0].Payload.(domain.ChatMessagePayload)
		require.True(t, ok)
		assert.Equal(t, "hello everyone", payload.Text)
		assert.Equal(t, result["messageId"], payload.MessageID)
	}
}

func TestRouter_ChatMutedSenderRejected(t *testing.T) {
	f := newRouterFixture(t)
	f.store.SetChatMuted(testMeeting, testGuest, true)

	_, err := f.router.Dispatch(context.Background(), f.guestActor(), domain.ActionRequest{
		Action:    ActionChatMessage,
		MeetingID: testMeeting,
		Text:      "can anyone hear me",
	})
	assert.ErrorIs(t, err, domain.ErrChatMuted)

	// Nothing fanned out.
	assert.Empty(t, f.hostCh.Events())
	assert.Empty(t, f.guestCh.Events())
}

func TestRouter_ChatMuteUserAndUnmute(t *testing.T) {
	f := newRouterFixture(t)

	_, err := f.router.Dispatch(context.Background(), f.hostActor(), domain.ActionRequest{
		Action:       ActionChatMuteUser,
		MeetingID:    testMeeting,
		TargetUserID: testGuest,
	})
	require.NoError(t, err)
	assert.ErrorIs(t, f.store.CheckChatAllowed(testMeeting, f.guestActor()), domain.ErrChatMuted)
	assert.Equal(t, []domain.EventType{domain.EventChatMuted}, f.guestCh.EventTypes())

	_, err = f.router.Dispatch(context.Background(), f.hostActor(), domain.ActionRequest{
		Action:       ActionChatUnmuteUser,
		MeetingID:    testMeeting,
		TargetUserID: testGuest,
	})
	require.NoError(t, err)
	assert.NoError(t, f.store.CheckChatAllowed(testMeeting, f.guestActor()))
}

func TestRouter_ChatMuteAll(t *testing.T) {
	f := newRouterFixture(t)

	_, err := f.router.Dispatch(context.Background(), f.hostActor(), domain.ActionRequest{
		Action:    ActionChatMuteAll,
		MeetingID: testMeeting,
	})
	require.NoError(t, err)

	assert.Equal(t, []domain.EventType{domain.EventChatGlobalMuted}, f.hostCh.EventTypes())
	assert.Equal(t, []domain.EventType{domain.EventChatGlobalMuted}, f.guestCh.EventTypes())
	assert.ErrorIs(t, f.store.CheckChatAllowed(testMeeting, f.guestActor()), domain.ErrChatMuted)

	// The host still talks through the global mute.
	_, err = f.router.Dispatch(context.Background(), f.hostActor(), domain.ActionRequest{
		Action:    ActionChatMessage,
		MeetingID: testMeeting,
		Text:      "please hold questions",
	})
	assert.NoError(t, err)
}

func TestRouter_ChatMuteAllRequiresHostOrAdmin(t *testing.T) {
	f := newRouterFixture(t)

	_, err := f.router.Dispatch(context.Background(), f.guestActor(), domain.ActionRequest{
		Action:    ActionChatMuteAll,
		MeetingID: testMeeting,
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRouter_ChatDeleteMessage(t *testing.T) {
	f := newRouterFixture(t)

	_, err := f.router.Dispatch(context.Background(), f.hostActor(), domain.ActionRequest{
		Action:    ActionChatDeleteMessage,
		MeetingID: testMeeting,
	})
	assert.ErrorIs(t, err, domain.ErrMissingField)

	_, err = f.router.Dispatch(context.Background(), f.hostActor(), domain.ActionRequest{
		Action:    ActionChatDeleteMessage,
		MeetingID: testMeeting,
		MessageID: "msg-42",
	})
	require.NoError(t, err)

	events := f.guestCh.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventChatMessageDeleted, events[0].Type)
	payload, ok := events[0].Payload.(domain.ChatMessageDeletedPayload)
	require.True(t, ok)
	assert.Equal(t, "msg-42", payload.MessageID)
}
