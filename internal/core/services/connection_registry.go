package services

import (
	"sync"
	"time"

	"meetsignal/internal/core/domain"
	"meetsignal/internal/core/ports"

	"go.uber.org/zap"
)

type connKey struct {
	meetingID domain.MeetingID
	userID    domain.UserID
}

type connection struct {
	channel   ports.PushChannel
	createdAt time.Time
}

type connectionRegistry struct {
	mu    sync.RWMutex
	conns map[connKey]*connection

	// onDead is invoked when a write failure reveals a dead channel, so
	// broadcast failures trigger the same unwinding as an observed
	// disconnect instead of leaving stale entries behind.
	onDead func(domain.MeetingID, domain.UserID, ports.PushChannel)

	metrics ports.MetricsRecorder
	logger  *zap.SugaredLogger
}

// NewConnectionRegistry creates an empty registry. onDead may be nil;
// the websocket layer wires it to the disconnect handler.
func NewConnectionRegistry(metrics ports.MetricsRecorder, logger *zap.SugaredLogger) ports.ConnectionRegistry {
	if metrics == nil {
		metrics = NoopMetrics()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &connectionRegistry{
		conns:   make(map[connKey]*connection),
		metrics: metrics,
		logger:  logger,
	}
}

// OnDeadConnection registers the callback invoked after a dead channel
// is pruned. Must be set before traffic flows.
func (r *connectionRegistry) OnDeadConnection(fn func(domain.MeetingID, domain.UserID, ports.PushChannel)) {
	r.onDead = fn
}

// Register stores the channel for an identity. A second registration
// for the same identity supersedes the first; the old channel is
// closed so its reader loop observes the disconnect.
func (r *connectionRegistry) Register(meetingID domain.MeetingID, userID domain.UserID, ch ports.PushChannel) {
	key := connKey{meetingID, userID}

	r.mu.Lock()
	old, replaced := r.conns[key]
	r.conns[key] = &connection{channel: ch, createdAt: time.Now()}
	r.mu.Unlock()

	if replaced {
		old.channel.Close()
		r.logger.Infow("superseded existing connection", "meeting_id", meetingID, "user_id", userID)
	} else {
		r.metrics.RecordConnectionOpened()
	}
}

// Unregister removes the identity's entry. With a non-nil ch the entry
// is removed only while ch is still the registered channel; a handler
// unwinding a superseded connection must not evict its replacement.
// Removing an absent entry is a no-op.
func (r *connectionRegistry) Unregister(meetingID domain.MeetingID, userID domain.UserID, ch ports.PushChannel) bool {
	key := connKey{meetingID, userID}

	r.mu.Lock()
	cur, existed := r.conns[key]
	if existed && ch != nil && cur.channel != ch {
		r.mu.Unlock()
		return false
	}
	delete(r.conns, key)
	r.mu.Unlock()

	if existed {
		r.metrics.RecordConnectionClosed()
	}
	return existed
}

func (r *connectionRegistry) Lookup(meetingID domain.MeetingID, userID domain.UserID) (ports.PushChannel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[connKey{meetingID, userID}]
	if !ok {
		return nil, false
	}
	return conn.channel, true
}

func (r *connectionRegistry) ConnectedAt(meetingID domain.MeetingID, userID domain.UserID) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[connKey{meetingID, userID}]
	if !ok {
		return time.Time{}, false
	}
	return conn.createdAt, true
}

func (r *connectionRegistry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Send pushes one event to a single identity. A missing entry yields
// ErrNotConnected; a transport failure is logged, prunes the entry and
// never propagates to the caller, since the dead channel gets cleaned
// up by its own disconnect signal.
func (r *connectionRegistry) Send(meetingID domain.MeetingID, userID domain.UserID, event domain.Event) error {
	ch, ok := r.Lookup(meetingID, userID)
	if !ok {
		return domain.ErrNotConnected
	}

	if err := ch.Push(event); err != nil {
		r.logger.Warnw("push failed, pruning connection",
			"meeting_id", meetingID,
			"user_id", userID,
			"event_type", event.Type,
			"error", err,
		)
		r.pruneDead(meetingID, userID, ch)
		return nil
	}

	r.metrics.RecordEventPushed(event.Type)
	return nil
}

// Broadcast pushes an event to every connection of the meeting whose
// userID satisfies the predicate (nil matches all). Individual
// failures prune the dead entry and do not abort the fan-out.
func (r *connectionRegistry) Broadcast(meetingID domain.MeetingID, event domain.Event, predicate func(domain.UserID) bool) {
	type target struct {
		userID  domain.UserID
		channel ports.PushChannel
	}

	r.mu.RLock()
	targets := make([]target, 0, len(r.conns))
	for key, conn := range r.conns {
		if key.meetingID != meetingID {
			continue
		}
		if predicate != nil && !predicate(key.userID) {
			continue
		}
		targets = append(targets, target{key.userID, conn.channel})
	}
	r.mu.RUnlock()

	for _, t := range targets {
		if err := t.channel.Push(event); err != nil {
			r.logger.Warnw("broadcast push failed, pruning connection",
				"meeting_id", meetingID,
				"user_id", t.userID,
				"event_type", event.Type,
				"error", err,
			)
			r.pruneDead(meetingID, t.userID, t.channel)
			continue
		}
		r.metrics.RecordEventPushed(event.Type)
	}
}

// pruneDead removes a connection whose channel failed a write and
// routes it through the disconnect path.
func (r *connectionRegistry) pruneDead(meetingID domain.MeetingID, userID domain.UserID, ch ports.PushChannel) {
	r.metrics.RecordSendFailure()

	key := connKey{meetingID, userID}
	r.mu.Lock()
	// Only prune if the failing channel is still the registered one; a
	// reconnect may already have superseded it.
	if cur, ok := r.conns[key]; ok && cur.channel == ch {
		delete(r.conns, key)
		r.mu.Unlock()
		r.metrics.RecordConnectionClosed()
		ch.Close()
		if r.onDead != nil {
			go r.onDead(meetingID, userID, ch)
		}
		return
	}
	r.mu.Unlock()
	ch.Close()
}
