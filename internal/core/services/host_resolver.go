package services

import (
	"context"

	"meetsignal/internal/core/domain"
	"meetsignal/internal/core/ports"
	"meetsignal/pkg/circuitbreaker"
	"meetsignal/pkg/retry"

	"go.uber.org/zap"
)

type hostResolver struct {
	meetings ports.MeetingRepository
	store    ports.SessionStore

	retryCfg retry.Config
	breaker  *circuitbreaker.CircuitBreaker

	logger *zap.SugaredLogger
}

// NewHostResolver builds a resolver that consults the meeting-metadata
// collaborator through retry and a circuit breaker.
//
// Fallback policy when the collaborator is unavailable: if the session
// has no participants yet, the requesting user becomes host for the
// lifetime of this session. This is deliberate graceful degradation
// carried over from the original platform, but it is also a
// host-impersonation path: anyone who connects first during a metadata
// outage gains moderation authority. Integrators who need a stricter
// trust model should disable meetings entirely while metadata is down
// instead of removing the fallback here.
func NewHostResolver(
	meetings ports.MeetingRepository,
	store ports.SessionStore,
	retryCfg retry.Config,
	breaker *circuitbreaker.CircuitBreaker,
	logger *zap.SugaredLogger,
) ports.HostResolver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &hostResolver{
		meetings: meetings,
		store:    store,
		retryCfg: retryCfg,
		breaker:  breaker,
		logger:   logger,
	}
}

func (r *hostResolver) Resolve(ctx context.Context, meetingID domain.MeetingID, userID domain.UserID) (domain.UserID, bool) {
	creator, err := r.lookupCreator(ctx, meetingID)
	if err == nil && creator != "" {
		r.store.SetHost(meetingID, creator)
		return creator, creator == userID
	}

	r.logger.Warnw("meeting metadata lookup failed, applying fallback host policy",
		"meeting_id", meetingID,
		"user_id", userID,
		"error", err,
	)

	// Collaborator unavailable: first user into an empty session takes
	// the host position; everyone else waits.
	if r.store.ClaimHost(meetingID, userID) {
		r.logger.Infow("fallback host claimed", "meeting_id", meetingID, "user_id", userID)
		return userID, true
	}
	if hostID, ok := r.store.HostOf(meetingID); ok {
		return hostID, hostID == userID
	}
	return "", false
}

func (r *hostResolver) lookupCreator(ctx context.Context, meetingID domain.MeetingID) (domain.UserID, error) {
	fn := func() (domain.UserID, error) {
		return r.meetings.GetCreator(ctx, meetingID)
	}

	if r.breaker == nil {
		return retry.RetryWithResult(ctx, r.retryCfg, fn)
	}

	result, err := r.breaker.ExecuteWithResult(ctx, func() (interface{}, error) {
		return retry.RetryWithResult(ctx, r.retryCfg, fn)
	})
	if err != nil {
		return "", err
	}
	return result.(domain.UserID), nil
}
