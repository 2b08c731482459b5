package services

import (
	"context"
	"sync"
	"time"

	"meetsignal/internal/core/domain"
	"meetsignal/pkg/retry"
)

// fakeChannel is an in-memory PushChannel recording every event it
// receives. failPush makes every Push fail, simulating a dead socket.
type fakeChannel struct {
	mu       sync.Mutex
	events   []domain.Event
	closed   bool
	failPush bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{}
}

func (c *fakeChannel) Push(event domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failPush || c.closed {
		return domain.ErrNotConnected
	}
	c.events = append(c.events, event)
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeChannel) Events() []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *fakeChannel) EventTypes() []domain.EventType {
	events := c.Events()
	types := make([]domain.EventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

// stubResolver returns a fixed answer without touching any collaborator.
type stubResolver struct {
	hostID domain.UserID
}

func (r *stubResolver) Resolve(_ context.Context, _ domain.MeetingID, userID domain.UserID) (domain.UserID, bool) {
	return r.hostID, r.hostID != "" && r.hostID == userID
}

// failingMeetingRepo simulates a metadata collaborator outage.
type failingMeetingRepo struct {
	err error
}

func (r *failingMeetingRepo) GetByID(context.Context, domain.MeetingID) (*domain.Meeting, error) {
	return nil, r.err
}

func (r *failingMeetingRepo) GetCreator(context.Context, domain.MeetingID) (domain.UserID, error) {
	return "", r.err
}

// fastRetry keeps collaborator tests quick.
func fastRetry() retry.Config {
	return retry.Config{
		Enabled:            true,
		MaxAttempts:        1,
		InitialDelay:       time.Millisecond,
		MaxDelay:           5 * time.Millisecond,
		Multiplier:         2.0,
		NonRetryableErrors: []error{domain.ErrMeetingNotFound},
	}
}
