package services

import (
	"context"
	"time"

	"meetsignal/internal/core/domain"
	"meetsignal/internal/core/ports"
	"meetsignal/pkg/cache"

	"go.uber.org/zap"
)

const profileCacheTTL = 5 * time.Minute

type joinService struct {
	registry ports.ConnectionRegistry
	store    ports.SessionStore
	resolver ports.HostResolver
	profiles ports.ProfileRepository

	profileCache *cache.Cache

	metrics ports.MetricsRecorder
	logger  *zap.SugaredLogger
}

// NewJoinService wires the join workflow: connection registration,
// session creation, host resolution and the waiting-room path.
func NewJoinService(
	registry ports.ConnectionRegistry,
	store ports.SessionStore,
	resolver ports.HostResolver,
	profiles ports.ProfileRepository,
	metrics ports.MetricsRecorder,
	logger *zap.SugaredLogger,
) ports.JoinService {
	if metrics == nil {
		metrics = NoopMetrics()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &joinService{
		registry:     registry,
		store:        store,
		resolver:     resolver,
		profiles:     profiles,
		profileCache: cache.NewCache(profileCacheTTL),
		metrics:      metrics,
		logger:       logger,
	}
}

// Join classifies the connecting user as host or waiting and emits the
// corresponding events. Rejoining is idempotent: membership sets stay
// unchanged, only the registry entry is refreshed.
func (s *joinService) Join(ctx context.Context, meetingID domain.MeetingID, userID domain.UserID, ch ports.PushChannel) error {
	s.registry.Register(meetingID, userID, ch)
	s.store.Ensure(meetingID)

	// Host resolution talks to a collaborator and must not hold any
	// meeting state lock while it waits.
	hostID, isHost := s.resolver.Resolve(ctx, meetingID, userID)

	if isHost || s.store.IsParticipant(meetingID, userID) {
		s.joinApproved(meetingID, userID, isHost)
		return nil
	}

	s.joinWaiting(ctx, meetingID, userID, hostID)
	return nil
}

func (s *joinService) joinApproved(meetingID domain.MeetingID, userID domain.UserID, isHost bool) {
	snap := s.store.JoinAsHost(meetingID, userID)
	s.metrics.RecordJoin(isHost)

	if err := s.registry.Send(meetingID, userID, domain.NewConnectedEvent(snap, userID)); err != nil {
		s.logger.Warnw("could not deliver connected event", "meeting_id", meetingID, "user_id", userID, "error", err)
	}

	if isHost {
		s.registry.Broadcast(meetingID, domain.NewHostConnectedEvent(userID), func(u domain.UserID) bool {
			return u != userID && s.store.IsParticipant(meetingID, u)
		})
	}

	s.logger.Infow("participant connected",
		"meeting_id", meetingID,
		"user_id", userID,
		"is_host", isHost,
	)
}

func (s *joinService) joinWaiting(ctx context.Context, meetingID domain.MeetingID, userID domain.UserID, hostID domain.UserID) {
	s.store.AddWaiting(meetingID, userID)
	s.metrics.RecordJoin(false)

	if err := s.registry.Send(meetingID, userID, domain.NewWaitingApprovalEvent()); err != nil {
		s.logger.Warnw("could not deliver waiting-approval event", "meeting_id", meetingID, "user_id", userID, "error", err)
	}

	if hostID == "" {
		var ok bool
		if hostID, ok = s.store.HostOf(meetingID); !ok {
			s.logger.Infow("no host connected yet, approval request deferred", "meeting_id", meetingID, "user_id", userID)
			return
		}
	}
	if _, connected := s.registry.Lookup(meetingID, hostID); !connected {
		return
	}

	profile := s.fetchProfile(ctx, userID)
	if err := s.registry.Send(meetingID, hostID, domain.NewApprovalRequestEvent(profile)); err != nil {
		s.logger.Warnw("could not deliver approval request", "meeting_id", meetingID, "host_id", hostID, "error", err)
	}
}

// fetchProfile looks up display fields best-effort. On failure the raw
// id is all the host gets.
func (s *joinService) fetchProfile(ctx context.Context, userID domain.UserID) domain.Profile {
	if cached, ok := s.profileCache.Get(string(userID)); ok {
		return cached.(domain.Profile)
	}

	if s.profiles != nil {
		if p, err := s.profiles.GetProfile(ctx, userID); err == nil && p != nil {
			profile := *p
			profile.UserID = userID
			s.profileCache.Set(string(userID), profile)
			return profile
		} else if err != nil {
			s.logger.Debugw("profile lookup failed, using raw id", "user_id", userID, "error", err)
		}
	}

	return domain.Profile{UserID: userID}
}

// Leave is the disconnect handler. It is idempotent: once the registry
// entry and session membership are gone, repeated calls are no-ops. A
// non-nil ch that has been superseded by a reconnect leaves the session
// untouched; the replacement connection owns the membership now.
func (s *joinService) Leave(meetingID domain.MeetingID, userID domain.UserID, ch ports.PushChannel) {
	if !s.registry.Unregister(meetingID, userID, ch) && ch != nil {
		if _, replaced := s.registry.Lookup(meetingID, userID); replaced {
			return
		}
	}

	removed, ended := s.store.Disconnect(meetingID, userID)
	if !removed {
		return
	}
	if ended {
		s.logger.Infow("last participant left, session removed", "meeting_id", meetingID)
		return
	}

	s.registry.Broadcast(meetingID, domain.NewUserLeftEvent(userID), func(u domain.UserID) bool {
		return s.store.IsParticipant(meetingID, u)
	})
	s.logger.Infow("participant disconnected", "meeting_id", meetingID, "user_id", userID)
}
