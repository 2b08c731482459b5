package services

import (
	"sort"
	"sync"

	"meetsignal/internal/core/domain"
	"meetsignal/internal/core/ports"

	"go.uber.org/zap"
)

// session is the ephemeral state of one meeting. All fields are guarded
// by mu; every public SessionStore operation locks exactly one session,
// so mutations for different meetings never block each other and
// mutations for the same meeting are serialized.
type session struct {
	mu sync.Mutex

	hostID      domain.UserID
	hostClaimed bool // host position taken via fallback, not metadata

	participants     map[domain.UserID]struct{}
	waiting          map[domain.UserID]struct{}
	rooms            map[domain.RoomID]map[domain.UserID]struct{}
	recordingAllowed map[domain.UserID]struct{}
	chatMuted        map[domain.UserID]struct{}
	chatGlobalMute   bool
}

func newSession() *session {
	return &session{
		participants:     make(map[domain.UserID]struct{}),
		waiting:          make(map[domain.UserID]struct{}),
		rooms:            map[domain.RoomID]map[domain.UserID]struct{}{domain.MainRoom: {}},
		recordingAllowed: make(map[domain.UserID]struct{}),
		chatMuted:        make(map[domain.UserID]struct{}),
	}
}

// snapshotLocked builds a snapshot; callers must hold s.mu.
func (s *session) snapshotLocked(meetingID domain.MeetingID) domain.SessionSnapshot {
	snap := domain.SessionSnapshot{
		MeetingID:        meetingID,
		HostID:           s.hostID,
		Participants:     make([]domain.UserID, 0, len(s.participants)),
		PendingApprovals: make([]domain.UserID, 0, len(s.waiting)),
		Rooms:            make([]domain.RoomID, 0, len(s.rooms)),
	}
	for u := range s.participants {
		snap.Participants = append(snap.Participants, u)
	}
	for u := range s.waiting {
		snap.PendingApprovals = append(snap.PendingApprovals, u)
	}
	for r := range s.rooms {
		snap.Rooms = append(snap.Rooms, r)
	}
	sort.Slice(snap.Participants, func(i, j int) bool { return snap.Participants[i] < snap.Participants[j] })
	sort.Slice(snap.PendingApprovals, func(i, j int) bool { return snap.PendingApprovals[i] < snap.PendingApprovals[j] })
	sort.Slice(snap.Rooms, func(i, j int) bool { return snap.Rooms[i] < snap.Rooms[j] })
	return snap
}

// removeFromRoomsLocked drops the user from whichever room holds it;
// callers must hold s.mu.
func (s *session) removeFromRoomsLocked(userID domain.UserID) {
	for _, members := range s.rooms {
		delete(members, userID)
	}
}

type sessionStore struct {
	mu       sync.RWMutex
	sessions map[domain.MeetingID]*session

	metrics ports.MetricsRecorder
	logger  *zap.SugaredLogger
}

// NewSessionStore creates an empty session store. State is purely in
// process memory; nothing survives a restart.
func NewSessionStore(metrics ports.MetricsRecorder, logger *zap.SugaredLogger) ports.SessionStore {
	if metrics == nil {
		metrics = NoopMetrics()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &sessionStore{
		sessions: make(map[domain.MeetingID]*session),
		metrics:  metrics,
		logger:   logger,
	}
}

// get returns the session for a meeting, or nil if none exists.
func (st *sessionStore) get(meetingID domain.MeetingID) *session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sessions[meetingID]
}

func (st *sessionStore) Ensure(meetingID domain.MeetingID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[meetingID]; ok {
		return
	}
	st.sessions[meetingID] = newSession()
	st.metrics.RecordSessionStarted(meetingID)
	st.logger.Infow("session created", "meeting_id", meetingID)
}

func (st *sessionStore) Exists(meetingID domain.MeetingID) bool {
	return st.get(meetingID) != nil
}

func (st *sessionStore) HostOf(meetingID domain.MeetingID) (domain.UserID, bool) {
	s := st.get(meetingID)
	if s == nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hostID == "" {
		return "", false
	}
	return s.hostID, true
}

func (st *sessionStore) SetHost(meetingID domain.MeetingID, userID domain.UserID) {
	s := st.get(meetingID)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hostID = userID
	s.hostClaimed = false
}

// ClaimHost records a fallback host: the requester takes the host
// position only when no participant has joined yet and no host is
// already claimed. Returns whether the claim succeeded.
func (st *sessionStore) ClaimHost(meetingID domain.MeetingID, userID domain.UserID) bool {
	s := st.get(meetingID)
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hostID != "" {
		return s.hostID == userID
	}
	if len(s.participants) > 0 {
		return false
	}
	s.hostID = userID
	s.hostClaimed = true
	return true
}

func (st *sessionStore) JoinAsHost(meetingID domain.MeetingID, userID domain.UserID) domain.SessionSnapshot {
	s := st.get(meetingID)
	if s == nil {
		return domain.SessionSnapshot{MeetingID: meetingID}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// A rejoin leaves membership untouched.
	if _, ok := s.participants[userID]; !ok {
		s.participants[userID] = struct{}{}
		s.rooms[domain.MainRoom][userID] = struct{}{}
		delete(s.waiting, userID)
	}
	return s.snapshotLocked(meetingID)
}

func (st *sessionStore) AddWaiting(meetingID domain.MeetingID, userID domain.UserID) {
	s := st.get(meetingID)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// An approved participant never re-enters the waiting room.
	if _, ok := s.participants[userID]; ok {
		return
	}
	if _, ok := s.waiting[userID]; !ok {
		s.waiting[userID] = struct{}{}
		st.metrics.RecordWaiting(1)
	}
}

func (st *sessionStore) IsParticipant(meetingID domain.MeetingID, userID domain.UserID) bool {
	s := st.get(meetingID)
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.participants[userID]
	return ok
}

func (st *sessionStore) Approve(meetingID domain.MeetingID, userID domain.UserID) (domain.SessionSnapshot, error) {
	s := st.get(meetingID)
	if s == nil {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.waiting[userID]; !ok {
		return domain.SessionSnapshot{}, domain.ErrNotWaiting
	}
	delete(s.waiting, userID)
	s.participants[userID] = struct{}{}
	s.rooms[domain.MainRoom][userID] = struct{}{}
	st.metrics.RecordWaiting(-1)
	return s.snapshotLocked(meetingID), nil
}

func (st *sessionStore) Reject(meetingID domain.MeetingID, userID domain.UserID) error {
	s := st.get(meetingID)
	if s == nil {
		return domain.ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.waiting[userID]; !ok {
		return domain.ErrNotWaiting
	}
	delete(s.waiting, userID)
	st.metrics.RecordWaiting(-1)
	return nil
}

func (st *sessionStore) CreateRoom(meetingID domain.MeetingID, roomID domain.RoomID) bool {
	s := st.get(meetingID)
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; ok {
		return false
	}
	s.rooms[roomID] = make(map[domain.UserID]struct{})
	return true
}

func (st *sessionStore) MoveToRoom(meetingID domain.MeetingID, userID domain.UserID, roomID domain.RoomID) error {
	s := st.get(meetingID)
	if s == nil {
		return domain.ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[userID]; !ok {
		return domain.ErrNotParticipant
	}
	s.removeFromRoomsLocked(userID)
	if _, ok := s.rooms[roomID]; !ok {
		s.rooms[roomID] = make(map[domain.UserID]struct{})
	}
	s.rooms[roomID][userID] = struct{}{}
	return nil
}

func (st *sessionStore) RoomOf(meetingID domain.MeetingID, userID domain.UserID) (domain.RoomID, bool) {
	s := st.get(meetingID)
	if s == nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for room, members := range s.rooms {
		if _, ok := members[userID]; ok {
			return room, true
		}
	}
	return "", false
}

func (st *sessionStore) SetRecordingAllowed(meetingID domain.MeetingID, userID domain.UserID, allowed bool) {
	s := st.get(meetingID)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if allowed {
		s.recordingAllowed[userID] = struct{}{}
	} else {
		delete(s.recordingAllowed, userID)
	}
}

// CanRecord implements the caller-side recording check: host, admin,
// or explicitly granted.
func (st *sessionStore) CanRecord(meetingID domain.MeetingID, actor domain.Actor) bool {
	if actor.IsAdmin {
		return true
	}
	s := st.get(meetingID)
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hostID == actor.UserID {
		return true
	}
	_, ok := s.recordingAllowed[actor.UserID]
	return ok
}

func (st *sessionStore) SetChatMuted(meetingID domain.MeetingID, userID domain.UserID, muted bool) {
	s := st.get(meetingID)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if muted {
		s.chatMuted[userID] = struct{}{}
	} else {
		delete(s.chatMuted, userID)
	}
}

func (st *sessionStore) SetGlobalChatMute(meetingID domain.MeetingID, muted bool) {
	s := st.get(meetingID)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatGlobalMute = muted
}

// CheckChatAllowed reports whether the actor may post a chat message.
// Muted senders get an explicit error rather than a silent drop.
func (st *sessionStore) CheckChatAllowed(meetingID domain.MeetingID, actor domain.Actor) error {
	s := st.get(meetingID)
	if s == nil {
		return domain.ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	hostOrAdmin := actor.IsAdmin || s.hostID == actor.UserID
	if s.chatGlobalMute && !hostOrAdmin {
		return domain.ErrChatMuted
	}
	if _, muted := s.chatMuted[actor.UserID]; muted && !hostOrAdmin {
		return domain.ErrChatMuted
	}
	return nil
}

// Disconnect unwinds a user's membership from every session structure.
// The session itself is deleted once nobody is left in it: both the
// participant set and the waiting room must be empty, so a waiting
// user is never orphaned by an unrelated disconnect.
func (st *sessionStore) Disconnect(meetingID domain.MeetingID, userID domain.UserID) (bool, bool) {
	s := st.get(meetingID)
	if s == nil {
		return false, false
	}

	s.mu.Lock()
	removed := false
	if _, ok := s.waiting[userID]; ok {
		delete(s.waiting, userID)
		st.metrics.RecordWaiting(-1)
		removed = true
	}
	if _, ok := s.participants[userID]; ok {
		delete(s.participants, userID)
		s.removeFromRoomsLocked(userID)
		removed = true
	}
	empty := len(s.participants) == 0 && len(s.waiting) == 0
	s.mu.Unlock()

	if !empty {
		return removed, false
	}

	st.mu.Lock()
	// Re-check under the store lock: a concurrent join may have created
	// activity between the unlock above and here.
	if cur, ok := st.sessions[meetingID]; ok && cur == s {
		cur.mu.Lock()
		stillEmpty := len(cur.participants) == 0 && len(cur.waiting) == 0
		cur.mu.Unlock()
		if stillEmpty {
			delete(st.sessions, meetingID)
			st.mu.Unlock()
			st.metrics.RecordSessionEnded(meetingID)
			st.logger.Infow("session ended", "meeting_id", meetingID)
			return removed, true
		}
	}
	st.mu.Unlock()
	return removed, false
}

func (st *sessionStore) Snapshot(meetingID domain.MeetingID) (domain.SessionSnapshot, error) {
	s := st.get(meetingID)
	if s == nil {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(meetingID), nil
}
