package runtime

import (
	"sync"

	"relay-lab/contract"
	"relay-lab/domain"

	"github.com/samber/lo"
)

// Registry owns the user -> connection presence state. It is the only holder
// of that state; all mutation goes through the Hub so that a mutation and the
// broadcast reflecting it form one atomic unit.
//
// Two maps, same idea as splitting sessions from room membership: sessions
// tracks every live transport (identified or not, the broadcast audience),
// users tracks which identity is bound to which connection.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.ConnID]contract.EventSink
	users    map[string]domain.ConnID
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.ConnID]contract.EventSink),
		users:    make(map[string]domain.ConnID),
	}
}

// AddSession tracks a freshly opened transport. Anonymous until the client
// registers an identity; it already receives presence broadcasts.
func (r *Registry) AddSession(id domain.ConnID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = sink
}

func (r *Registry) RemoveSession(id domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Register unconditionally binds userID to the given connection.
// Overwrite is intentional last-writer-wins: a second registration for the
// same identity replaces the prior entry, and the prior connection is not
// notified of the eviction.
func (r *Registry) Register(userID string, id domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[userID] = id
}

// UnregisterByConn removes every identity bound to the given connection and
// returns the identities removed (empty when the connection never held one).
// This is the only removal path; there is no unregister-by-user.
func (r *Registry) UnregisterByConn(id domain.ConnID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []string
	for userID, connID := range r.users {
		if connID == id {
			delete(r.users, userID)
			removed = append(removed, userID)
		}
	}
	return removed
}

// Lookup resolves a user identity to its live sink. The second return is
// false when the user is not registered or its connection is already gone.
func (r *Registry) Lookup(userID string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.users[userID]
	if !ok {
		return nil, false
	}
	sink, ok := r.sessions[id]
	return sink, ok
}

// SnapshotUserIDs returns all currently registered identities. Order is
// irrelevant; callers treat it as a set.
func (r *Registry) SnapshotUserIDs() domain.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.users)
}

// Sinks returns the delivery endpoint of every live transport, the audience
// of a presence broadcast.
func (r *Registry) Sinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sinks := make([]contract.EventSink, 0, len(r.sessions))
	for _, sink := range r.sessions {
		sinks = append(sinks, sink)
	}
	return sinks
}
