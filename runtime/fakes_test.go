package runtime

import (
	"chat-presence/domain"
	"chat-presence/domain/event"
	"chat-presence/errors"
	"context"
	"sync"

	"github.com/google/uuid"
)

// fakeConnection records every delivered event.
type fakeConnection struct {
	mu     sync.Mutex
	id     uuid.UUID
	user   domain.UserID
	events []event.Event
	full   bool
}

func newFakeConnection(user domain.UserID) *fakeConnection {
	return &fakeConnection{id: uuid.New(), user: user}
}

func (c *fakeConnection) ID() uuid.UUID         { return c.id }
func (c *fakeConnection) UserID() domain.UserID { return c.user }

func (c *fakeConnection) Deliver(_ context.Context, e event.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return errors.ErrOutboxFull
	}
	c.events = append(c.events, e)
	return nil
}

func (c *fakeConnection) Events() []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.Event(nil), c.events...)
}

func (c *fakeConnection) Rosters() []domain.Roster {
	var res []domain.Roster
	for _, e := range c.Events() {
		if r, ok := e.(event.RosterUpdated); ok {
			res = append(res, r.Online)
		}
	}
	return res
}

func (c *fakeConnection) LastRoster() domain.Roster {
	rosters := c.Rosters()
	if len(rosters) == 0 {
		return nil
	}
	return rosters[len(rosters)-1]
}

func (c *fakeConnection) Typings() []domain.TypingSignal {
	var res []domain.TypingSignal
	for _, e := range c.Events() {
		if t, ok := e.(event.Typing); ok {
			res = append(res, t.TypingSignal)
		}
	}
	return res
}
