package services

import (
	"context"
	"testing"

	"meetsignal/internal/core/domain"
	"meetsignal/internal/infrastructure/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinService_HostJoinsDirectly(t *testing.T) {
	registry := NewConnectionRegistry(nil, nil)
	store := NewSessionStore(nil, nil)
	profiles := memory.NewMemoryProfileRepository()
	join := NewJoinService(registry, store, &stubResolver{hostID: testHost}, profiles, nil, nil)

	ch := newFakeChannel()
	require.NoError(t, join.Join(context.Background(), testMeeting, testHost, ch))

	events := ch.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventConnected, events[0].Type)

	payload, ok := events[0].Payload.(domain.ConnectedPayload)
	require.True(t, ok)
	assert.True(t, payload.IsHost)
	assert.Equal(t, []domain.UserID{testHost}, payload.Participants)
	assert.Equal(t, []domain.RoomID{domain.MainRoom}, payload.Rooms)

	assert.True(t, store.IsParticipant(testMeeting, testHost))
}

func TestJoinService_GuestEntersWaitingRoom(t *testing.T) {
	registry := NewConnectionRegistry(nil, nil)
	store := NewSessionStore(nil, nil)
	profiles := memory.NewMemoryProfileRepository()
	profiles.Put(&domain.Profile{
		UserID:      testGuest,
		DisplayName: "Guest One",
		Email:       "guest@example.com",
	})
	join := NewJoinService(registry, store, &stubResolver{hostID: testHost}, profiles, nil, nil)

	hostCh := newFakeChannel()
	require.NoError(t, join.Join(context.Background(), testMeeting, testHost, hostCh))

	guestCh := newFakeChannel()
	require.NoError(t, join.Join(context.Background(), testMeeting, testGuest, guestCh))

	// Guest sees only the waiting notice.
	assert.Equal(t, []domain.EventType{domain.EventWaitingApproval}, guestCh.EventTypes())
	assert.False(t, store.IsParticipant(testMeeting, testGuest))

	// Host gets the enriched approval request.
	hostEvents := hostCh.Events()
	require.Len(t, hostEvents, 2)
	assert.Equal(t, domain.EventApprovalRequest, hostEvents[1].Type)

	payload, ok := hostEvents[1].Payload.(domain.ApprovalRequestPayload)
	require.True(t, ok)
	assert.Equal(t, testGuest, payload.UserID)
	assert.Equal(t, "Guest One", payload.DisplayName)
	assert.Equal(t, "guest@example.com", payload.Email)
}

func TestJoinService_ApprovalRequestWithoutProfile(t *testing.T) {
	registry := NewConnectionRegistry(nil, nil)
	store := NewSessionStore(nil, nil)
	join := NewJoinService(registry, store, &stubResolver{hostID: testHost}, memory.NewMemoryProfileRepository(), nil, nil)

	hostCh := newFakeChannel()
	require.NoError(t, join.Join(context.Background(), testMeeting, testHost, hostCh))
	require.NoError(t, join.Join(context.Background(), testMeeting, testGuest, newFakeChannel()))

	// Profile lookup failed; the raw id is all the host gets.
	hostEvents := hostCh.Events()
	require.Len(t, hostEvents, 2)
	payload, ok := hostEvents[1].Payload.(domain.ApprovalRequestPayload)
	require.True(t, ok)
	assert.Equal(t, testGuest, payload.UserID)
	assert.Empty(t, payload.DisplayName)
}

func TestJoinService_ApprovalRequestDeferredWithoutHost(t *testing.T) {
	registry := NewConnectionRegistry(nil, nil)
	store := NewSessionStore(nil, nil)
	join := NewJoinService(registry, store, &stubResolver{hostID: testHost}, memory.NewMemoryProfileRepository(), nil, nil)

	guestCh := newFakeChannel()
	require.NoError(t, join.Join(context.Background(), testMeeting, testGuest, guestCh))

	// No host connected: the guest waits, nothing else happens.
	assert.Equal(t, []domain.EventType{domain.EventWaitingApproval}, guestCh.EventTypes())

	snap, err := store.Snapshot(testMeeting)
	require.NoError(t, err)
	assert.Equal(t, []domain.UserID{testGuest}, snap.PendingApprovals)
}

func TestJoinService_HostConnectedBroadcast(t *testing.T) {
	registry := NewConnectionRegistry(nil, nil)
	store := NewSessionStore(nil, nil)
	join := NewJoinService(registry, store, &stubResolver{hostID: testHost}, memory.NewMemoryProfileRepository(), nil, nil)

	// An already-approved participant is connected before the host.
	store.Ensure(testMeeting)
	store.JoinAsHost(testMeeting, testGuest)
	guestCh := newFakeChannel()
	require.NoError(t, join.Join(context.Background(), testMeeting, testGuest, guestCh))

	hostCh := newFakeChannel()
	require.NoError(t, join.Join(context.Background(), testMeeting, testHost, hostCh))

	types := guestCh.EventTypes()
	require.NotEmpty(t, types)
	assert.Equal(t, domain.EventHostConnected, types[len(types)-1])

	// The host itself never receives its own announcement.
	assert.Equal(t, []domain.EventType{domain.EventConnected}, hostCh.EventTypes())
}

func TestJoinService_RejoinRefreshesChannel(t *testing.T) {
	registry := NewConnectionRegistry(nil, nil)
	store := NewSessionStore(nil, nil)
	join := NewJoinService(registry, store, &stubResolver{hostID: testHost}, memory.NewMemoryProfileRepository(), nil, nil)

	first := newFakeChannel()
	require.NoError(t, join.Join(context.Background(), testMeeting, testHost, first))
	second := newFakeChannel()
	require.NoError(t, join.Join(context.Background(), testMeeting, testHost, second))

	assert.True(t, first.IsClosed())
	assert.Equal(t, 1, registry.ConnectionCount())

	snap, err := store.Snapshot(testMeeting)
	require.NoError(t, err)
	assert.Equal(t, []domain.UserID{testHost}, snap.Participants)
}

func TestJoinService_FallbackHostClaim(t *testing.T) {
	registry := NewConnectionRegistry(nil, nil)
	store := NewSessionStore(nil, nil)
	resolver := NewHostResolver(&failingMeetingRepo{err: domain.ErrCollaboratorUnavailable}, store, fastRetry(), nil, nil)
	join := NewJoinService(registry, store, resolver, memory.NewMemoryProfileRepository(), nil, nil)

	// Metadata is down: the first user into the empty session takes the
	// host position, the second waits.
	firstCh := newFakeChannel()
	require.NoError(t, join.Join(context.Background(), testMeeting, testGuest, firstCh))
	assert.Equal(t, []domain.EventType{domain.EventConnected}, firstCh.EventTypes())

	secondCh := newFakeChannel()
	require.NoError(t, join.Join(context.Background(), testMeeting, "guest-2", secondCh))
	assert.Equal(t, []domain.EventType{domain.EventWaitingApproval}, secondCh.EventTypes())

	hostID, ok := store.HostOf(testMeeting)
	require.True(t, ok)
	assert.Equal(t, testGuest, hostID)
}

func TestJoinService_LeaveBroadcastsUserLeft(t *testing.T) {
	registry := NewConnectionRegistry(nil, nil)
	store := NewSessionStore(nil, nil)
	join := NewJoinService(registry, store, &stubResolver{hostID: testHost}, memory.NewMemoryProfileRepository(), nil, nil)

	hostCh := newFakeChannel()
	require.NoError(t, join.Join(context.Background(), testMeeting, testHost, hostCh))

	store.AddWaiting(testMeeting, testGuest)
	snap, err := store.Approve(testMeeting, testGuest)
	require.NoError(t, err)
	require.Contains(t, snap.Participants, testGuest)
	guestCh := newFakeChannel()
	require.NoError(t, join.Join(context.Background(), testMeeting, testGuest, guestCh))

	join.Leave(testMeeting, testGuest, guestCh)

	types := hostCh.EventTypes()
	require.NotEmpty(t, types)
	assert.Equal(t, domain.EventUserLeft, types[len(types)-1])
	assert.False(t, store.IsParticipant(testMeeting, testGuest))
	assert.Equal(t, 1, registry.ConnectionCount())
}

func TestJoinService_LeaveIsIdempotent(t *testing.T) {
	registry := NewConnectionRegistry(nil, nil)
	store := NewSessionStore(nil, nil)
	join := NewJoinService(registry, store, &stubResolver{hostID: testHost}, memory.NewMemoryProfileRepository(), nil, nil)

	ch := newFakeChannel()
	require.NoError(t, join.Join(context.Background(), testMeeting, testHost, ch))

	join.Leave(testMeeting, testHost, ch)
	join.Leave(testMeeting, testHost, ch)

	assert.Equal(t, 0, registry.ConnectionCount())
	assert.False(t, store.Exists(testMeeting))
}

func TestJoinService_StaleLeaveKeepsReplacementAlive(t *testing.T) {
	registry := NewConnectionRegistry(nil, nil)
	store := NewSessionStore(nil, nil)
	join := NewJoinService(registry, store, &stubResolver{hostID: testHost}, memory.NewMemoryProfileRepository(), nil, nil)

	first := newFakeChannel()
	require.NoError(t, join.Join(context.Background(), testMeeting, testHost, first))
	second := newFakeChannel()
	require.NoError(t, join.Join(context.Background(), testMeeting, testHost, second))

	// The superseded handler unwinds after the reconnect; the new
	// connection and the membership must both survive.
	join.Leave(testMeeting, testHost, first)

	assert.Equal(t, 1, registry.ConnectionCount())
	assert.True(t, store.IsParticipant(testMeeting, testHost))
	assert.True(t, store.Exists(testMeeting))

	join.Leave(testMeeting, testHost, second)
	assert.Equal(t, 0, registry.ConnectionCount())
	assert.False(t, store.Exists(testMeeting))
}
