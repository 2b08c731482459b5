package services

import (
	"context"

	"meetsignal/internal/core/domain"
	"meetsignal/internal/core/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Action tags accepted by the router. The set is closed; anything else
// yields ErrInvalidAction.
const (
	ActionOffer                  = "offer"
	ActionAnswer                 = "answer"
	ActionICECandidate           = "ice-candidate"
	ActionApproveParticipant     = "approve-participant"
	ActionRejectParticipant      = "reject-participant"
	ActionCreateRoom             = "create-room"
	ActionMoveToRoom             = "move-to-room"
	ActionSetRecordingPermission = "set-recording-permission"
	ActionChatMessage            = "chat-message"
	ActionChatMuteUser           = "chat-mute-user"
	ActionChatUnmuteUser         = "chat-unmute-user"
	ActionChatMuteAll            = "chat-mute-all"
	ActionChatUnmuteAll          = "chat-unmute-all"
	ActionChatDeleteMessage      = "chat-delete-message"
)

type routerService struct {
	registry ports.ConnectionRegistry
	store    ports.SessionStore

	metrics ports.MetricsRecorder
	logger  *zap.SugaredLogger
}

// NewRouterService builds the dispatcher for all moderation and
// room-management actions plus the opaque negotiation relay.
func NewRouterService(
	registry ports.ConnectionRegistry,
	store ports.SessionStore,
	metrics ports.MetricsRecorder,
	logger *zap.SugaredLogger,
) ports.RouterService {
	if metrics == nil {
		metrics = NoopMetrics()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &routerService{
		registry: registry,
		store:    store,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *routerService) Dispatch(ctx context.Context, actor domain.Actor, req domain.ActionRequest) (map[string]interface{}, error) {
	if req.MeetingID == "" {
		return nil, domain.ErrMissingField
	}

	s.metrics.RecordActionDispatched(req.Action)

	switch req.Action {
	case ActionOffer:
		return s.relaySignal(actor, req, domain.EventOffer)
	case ActionAnswer:
		return s.relaySignal(actor, req, domain.EventAnswer)
	case ActionICECandidate:
		return s.relaySignal(actor, req, domain.EventICECandidate)
	case ActionApproveParticipant:
		return s.approveParticipant(actor, req)
	case ActionRejectParticipant:
		return s.rejectParticipant(actor, req)
	case ActionCreateRoom:
		return s.createRoom(req)
	case ActionMoveToRoom:
		return s.moveToRoom(actor, req)
	case ActionSetRecordingPermission:
		return s.setRecordingPermission(actor, req)
	case ActionChatMessage:
		return s.chatMessage(actor, req)
	case ActionChatMuteUser:
		return s.setChatMute(actor, req, true)
	case ActionChatUnmuteUser:
		return s.setChatMute(actor, req, false)
	case ActionChatMuteAll:
		return s.setGlobalChatMute(actor, req, true)
	case ActionChatUnmuteAll:
		return s.setGlobalChatMute(actor, req, false)
	case ActionChatDeleteMessage:
		return s.chatDeleteMessage(req)
	default:
		return nil, domain.ErrInvalidAction
	}
}

// hostOrAdmin gates every moderation action.
func (s *routerService) hostOrAdmin(meetingID domain.MeetingID, actor domain.Actor) bool {
	if actor.IsAdmin {
		return true
	}
	hostID, ok := s.store.HostOf(meetingID)
	return ok && hostID == actor.UserID
}

// relaySignal forwards an opaque negotiation payload to the target,
// tagged with the sender. The payload is never interpreted.
func (s *routerService) relaySignal(actor domain.Actor, req domain.ActionRequest, t domain.EventType) (map[string]interface{}, error) {
	if req.TargetUserID == "" {
		return nil, domain.ErrMissingField
	}
	event := domain.NewSignalEvent(t, actor.UserID, req.Data)
	if err := s.registry.Send(req.MeetingID, req.TargetUserID, event); err != nil {
		return nil, err
	}
	return map[string]interface{}{"success": true}, nil
}

func (s *routerService) approveParticipant(actor domain.Actor, req domain.ActionRequest) (map[string]interface{}, error) {
	if req.TargetUserID == "" {
		return nil, domain.ErrMissingField
	}
	if !s.hostOrAdmin(req.MeetingID, actor) {
		return nil, domain.ErrForbidden
	}

	snap, err := s.store.Approve(req.MeetingID, req.TargetUserID)
	if err != nil {
		return nil, err
	}

	if err := s.registry.Send(req.MeetingID, req.TargetUserID, domain.NewApprovedEvent()); err != nil {
		s.logger.Warnw("approved user has no live channel", "meeting_id", req.MeetingID, "user_id", req.TargetUserID)
	}
	if err := s.registry.Send(req.MeetingID, req.TargetUserID, domain.NewConnectedEvent(snap, req.TargetUserID)); err != nil {
		s.logger.Warnw("could not deliver snapshot to approved user", "meeting_id", req.MeetingID, "user_id", req.TargetUserID)
	}
	s.registry.Broadcast(req.MeetingID, domain.NewUserJoinedEvent(req.TargetUserID), nil)

	s.logger.Infow("participant approved",
		"meeting_id", req.MeetingID,
		"user_id", req.TargetUserID,
		"approved_by", actor.UserID,
	)
	return map[string]interface{}{"success": true}, nil
}

func (s *routerService) rejectParticipant(actor domain.Actor, req domain.ActionRequest) (map[string]interface{}, error) {
	if req.TargetUserID == "" {
		return nil, domain.ErrMissingField
	}
	if !s.hostOrAdmin(req.MeetingID, actor) {
		return nil, domain.ErrForbidden
	}

	if err := s.store.Reject(req.MeetingID, req.TargetUserID); err != nil {
		return nil, err
	}
	if err := s.registry.Send(req.MeetingID, req.TargetUserID, domain.NewRejectedEvent()); err != nil {
		s.logger.Warnw("rejected user has no live channel", "meeting_id", req.MeetingID, "user_id", req.TargetUserID)
	}

	s.logger.Infow("participant rejected",
		"meeting_id", req.MeetingID,
		"user_id", req.TargetUserID,
		"rejected_by", actor.UserID,
	)
	return map[string]interface{}{"success": true}, nil
}

func (s *routerService) createRoom(req domain.ActionRequest) (map[string]interface{}, error) {
	if req.RoomID == "" {
		return nil, domain.ErrMissingField
	}
	created := s.store.CreateRoom(req.MeetingID, req.RoomID)
	if created {
		s.registry.Broadcast(req.MeetingID, domain.NewRoomCreatedEvent(req.RoomID), nil)
	}
	return map[string]interface{}{"success": true, "created": created}, nil
}

func (s *routerService) moveToRoom(actor domain.Actor, req domain.ActionRequest) (map[string]interface{}, error) {
	if req.TargetUserID == "" || req.RoomID == "" {
		return nil, domain.ErrMissingField
	}
	// Participants move themselves; moving someone else is a moderation
	// action.
	if req.TargetUserID != actor.UserID && !s.hostOrAdmin(req.MeetingID, actor) {
		return nil, domain.ErrForbidden
	}

	if err := s.store.MoveToRoom(req.MeetingID, req.TargetUserID, req.RoomID); err != nil {
		return nil, err
	}

	if err := s.registry.Send(req.MeetingID, req.TargetUserID, domain.NewRoomChangedEvent(req.RoomID)); err != nil {
		s.logger.Warnw("moved user has no live channel", "meeting_id", req.MeetingID, "user_id", req.TargetUserID)
	}
	s.registry.Broadcast(req.MeetingID, domain.NewParticipantRoomChangedEvent(req.TargetUserID, req.RoomID), nil)
	return map[string]interface{}{"success": true}, nil
}

func (s *routerService) setRecordingPermission(actor domain.Actor, req domain.ActionRequest) (map[string]interface{}, error) {
	if req.TargetUserID == "" {
		return nil, domain.ErrMissingField
	}
	if !s.hostOrAdmin(req.MeetingID, actor) {
		return nil, domain.ErrForbidden
	}

	s.store.SetRecordingAllowed(req.MeetingID, req.TargetUserID, req.Allowed)
	if err := s.registry.Send(req.MeetingID, req.TargetUserID, domain.NewRecordingPermissionEvent(req.Allowed)); err != nil {
		s.logger.Warnw("recording-permission target has no live channel", "meeting_id", req.MeetingID, "user_id", req.TargetUserID)
	}
	return map[string]interface{}{"success": true}, nil
}

// chatMessage broadcasts meeting-wide, regardless of breakout-room
// membership. Chat is intentionally not room-scoped: only the WebRTC
// peer wiring follows the room partition.
func (s *routerService) chatMessage(actor domain.Actor, req domain.ActionRequest) (map[string]interface{}, error) {
	if err := s.store.CheckChatAllowed(req.MeetingID, actor); err != nil {
		return nil, err
	}

	messageID := uuid.New().String()
	s.registry.Broadcast(req.MeetingID, domain.NewChatMessageEvent(actor.UserID, messageID, req.Text), nil)
	return map[string]interface{}{"success": true, "messageId": messageID}, nil
}

func (s *routerService) setChatMute(actor domain.Actor, req domain.ActionRequest, muted bool) (map[string]interface{}, error) {
	if req.TargetUserID == "" {
		return nil, domain.ErrMissingField
	}
	if !s.hostOrAdmin(req.MeetingID, actor) {
		return nil, domain.ErrForbidden
	}

	s.store.SetChatMuted(req.MeetingID, req.TargetUserID, muted)

	event := domain.NewChatUnmutedEvent(req.TargetUserID)
	if muted {
		event = domain.NewChatMutedEvent(req.TargetUserID)
	}
	if err := s.registry.Send(req.MeetingID, req.TargetUserID, event); err != nil {
		s.logger.Warnw("chat-mute target has no live channel", "meeting_id", req.MeetingID, "user_id", req.TargetUserID)
	}
	return map[string]interface{}{"success": true}, nil
}

func (s *routerService) setGlobalChatMute(actor domain.Actor, req domain.ActionRequest, muted bool) (map[string]interface{}, error) {
	if !s.hostOrAdmin(req.MeetingID, actor) {
		return nil, domain.ErrForbidden
	}

	s.store.SetGlobalChatMute(req.MeetingID, muted)

	event := domain.NewChatGlobalUnmutedEvent()
	if muted {
		event = domain.NewChatGlobalMutedEvent()
	}
	s.registry.Broadcast(req.MeetingID, event, nil)
	return map[string]interface{}{"success": true}, nil
}

// chatDeleteMessage only fans out the deletion notice; there is no
// server-side message store to delete from.
func (s *routerService) chatDeleteMessage(req domain.ActionRequest) (map[string]interface{}, error) {
	if req.MessageID == "" {
		return nil, domain.ErrMissingField
	}
	s.registry.Broadcast(req.MeetingID, domain.NewChatMessageDeletedEvent(req.MessageID), nil)
	return map[string]interface{}{"success": true}, nil
}
