// Package runtime holds the presence registry, the broadcaster, the relay and
// the connection lifecycle. It orchestrates real-time state without any
// transport or persistence logic.
package runtime

import (
	"context"
	"log/slog"
	"sync"

	"relay-lab/contract"
	"relay-lab/domain"
	"relay-lab/domain/event"
	"relay-lab/errors"
	"relay-lab/observability"
)

type SessionState int

const (
	// StateConnected: transport open, no identity bound yet.
	StateConnected SessionState = iota
	// StateIdentified: a register-user event bound an identity.
	StateIdentified
	// StateClosed: terminal. Every further lifecycle call is a no-op.
	StateClosed
)

// Session is the per-connection lifecycle state. Mutated only by the Hub
// under its lock.
type Session struct {
	ID domain.ConnID
	// AuthUserID is the identity carried by the token validated at upgrade
	// time. register-user may only bind this identity.
	AuthUserID string

	sink  contract.EventSink
	state SessionState
}

func (s *Session) State() SessionState { return s.state }

// Hub is the connection lifecycle manager. Every registry mutation and the
// broadcast reflecting it happen under one lock, so no second mutation can
// interleave before the first one's snapshot is on the wire. Relay traffic
// does not take this lock and runs fully in parallel.
type Hub struct {
	mu          sync.Mutex
	log         *slog.Logger
	registry    contract.IRegistry
	broadcaster *Broadcaster
	relay       *Relay
	metrics     *observability.Metrics
}

func NewHub(log *slog.Logger, registry contract.IRegistry, broadcaster *Broadcaster,
	relay *Relay, metrics *observability.Metrics) *Hub {
	return &Hub{
		log:         log,
		registry:    registry,
		broadcaster: broadcaster,
		relay:       relay,
		metrics:     metrics,
	}
}

// Connect enters a new transport into the system. No registry identity yet
// and no broadcast: the connection is anonymous until register-user arrives,
// but it already receives presence updates.
func (h *Hub) Connect(id domain.ConnID, authUserID string, sink contract.EventSink) *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.registry.AddSession(id, sink)
	h.metrics.ConnOpened()
	h.log.Info("connection opened", "conn_id", id, "user_id", authUserID)
	return &Session{ID: id, AuthUserID: authUserID, sink: sink, state: StateConnected}
}

// RegisterUser binds userID to the session's connection and broadcasts the
// new snapshot. Last-register-wins across connections.
//
// TODO: decide whether registering an identity on a new connection should
// evict the previous connection's mapping. Current behavior keeps the old
// connection alive and silently re-points the identity (product decision,
// tracked in DESIGN.md).
func (h *Hub) RegisterUser(ctx context.Context, s *Session, userID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.state == StateClosed {
		return errors.ErrSessionClosed
	}
	if userID != s.AuthUserID {
		return errors.ErrIdentityMismatch
	}

	h.registry.Register(userID, s.ID)
	h.metrics.SetRegisteredUsers(int64(len(h.registry.SnapshotUserIDs())))
	s.state = StateIdentified
	h.log.Info("user registered", "user_id", userID, "conn_id", s.ID)
	h.broadcaster.Publish(ctx, h.registry)
	return nil
}

// UnregisterUser removes the connection's identity binding without closing
// the transport; the session stays Identified and may re-register.
func (h *Hub) UnregisterUser(ctx context.Context, s *Session) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.state == StateClosed {
		return errors.ErrSessionClosed
	}

	removed := h.registry.UnregisterByConn(s.ID)
	if len(removed) == 0 {
		return nil
	}
	h.metrics.SetRegisteredUsers(int64(len(h.registry.SnapshotUserIDs())))
	h.log.Info("user unregistered", "user_ids", removed, "conn_id", s.ID)
	h.broadcaster.Publish(ctx, h.registry)
	return nil
}

// Disconnect reconciles a closed transport, whatever the cause: network
// loss, client navigation or explicit close all land here. Idempotent:
// duplicate close notifications are no-ops. Disconnecting a connection that
// never registered emits no broadcast.
func (h *Hub) Disconnect(ctx context.Context, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.state = StateClosed

	h.registry.RemoveSession(s.ID)
	h.metrics.ConnClosed()

	removed := h.registry.UnregisterByConn(s.ID)
	if len(removed) == 0 {
		h.log.Info("connection closed", "conn_id", s.ID)
		return
	}
	h.metrics.SetRegisteredUsers(int64(len(h.registry.SnapshotUserIDs())))
	h.log.Info("connection closed", "conn_id", s.ID, "user_ids", removed)
	h.broadcaster.Publish(ctx, h.registry)
}

// Relay forwards a send-message request. Independent per call; does not take
// the hub lock. The sender identity delivered to the recipient is the one
// authenticated at upgrade time, whatever the client wrote in the payload.
func (h *Hub) Relay(ctx context.Context, s *Session, msg event.SendMessage) {
	msg.From = s.AuthUserID
	h.relay.Relay(ctx, s.sink, msg)
}
