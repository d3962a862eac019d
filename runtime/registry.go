package runtime

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"sync"

	"github.com/samber/lo"
)

// Registry maps each online user to its single live connection.
// It is the only source of truth for "who is online" and is never persisted.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.UserID]contract.Connection
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.UserID]contract.Connection),
	}
}

var _ contract.IRegistry = (*Registry)(nil)

// Register stores conn as the live connection of its owner.
// A previous connection of the same user is overwritten, never queued nor merged,
// and returned so the caller can log or close it.
func (r *Registry) Register(conn contract.Connection) (contract.Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, replaced := r.sessions[conn.UserID()]
	r.sessions[conn.UserID()] = conn
	return previous, replaced
}

// Unregister removes the entry of conn's owner only if it still points to conn.
// A late disconnect from a superseded connection is a no-op and returns false.
func (r *Registry) Unregister(conn contract.Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[conn.UserID()]
	if !ok || current.ID() != conn.ID() {
		return false
	}
	delete(r.sessions, conn.UserID())
	return true
}

// Connection is a pure lookup.
func (r *Registry) Connection(userID domain.UserID) (contract.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.sessions[userID]
	return conn, ok
}

// Snapshot returns the roster and the connections it was computed from, taken under one lock.
func (r *Registry) Snapshot() (domain.Roster, []contract.Connection) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return domain.NewRoster(lo.Keys(r.sessions)), lo.Values(r.sessions)
}

func (r *Registry) Roster() domain.Roster {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return domain.NewRoster(lo.Keys(r.sessions))
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}
