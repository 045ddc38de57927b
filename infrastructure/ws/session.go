// Package ws is the websocket transport: one Session per connection, a read
// pump feeding the hub and a write pump draining a buffered send channel.
// Separating read/write avoids head-of-line blocking when a browser is slow.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"relay-lab/domain"
	"relay-lab/domain/event"
	"relay-lab/errors"
	"relay-lab/runtime"

	"github.com/gorilla/websocket"
)

// Session wraps one websocket connection and implements contract.EventSink.
// Consume never blocks: a full buffer drops the event and reports it, so a
// slow client can never stall the hub or the relay.
type Session struct {
	id        domain.ConnID
	conn      *websocket.Conn
	log       *slog.Logger
	send      chan event.ServerEvent
	closeOnce sync.Once
}

func NewSession(id domain.ConnID, conn *websocket.Conn, log *slog.Logger, bufferSize int) *Session {
	return &Session{
		id:   id,
		conn: conn,
		log:  log,
		send: make(chan event.ServerEvent, bufferSize),
	}
}

func (s *Session) ID() domain.ConnID { return s.id }

// Consume hands an event to the write pump. Called by fanout and relay.
func (s *Session) Consume(ctx context.Context, e event.ServerEvent) error {
	select {
	case s.send <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrSendBufferFull
	}
}

// close stops the write pump. Safe to call from both pumps.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.send)
	})
}

// writePump drains the send channel onto the wire. A write error ends the
// pump; the read pump notices the dead connection and runs the disconnect
// path.
func (s *Session) writePump() {
	defer s.conn.Close()

	for e := range s.send {
		data, err := json.Marshal(e.Payload())
		if err != nil {
			s.log.Error("failed to marshal outbound event", "event", e.EventName(), "error", err)
			continue
		}
		env := event.Envelope{Event: e.EventName(), Data: data}
		if err := s.conn.WriteJSON(env); err != nil {
			s.log.Debug("write failed, closing connection", "conn_id", s.id, "error", err)
			return
		}
	}
	_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump decodes client envelopes and drives the lifecycle. Any read error
// (network loss, client navigation, explicit close) lands in the single
// disconnect path, which is idempotent.
func (s *Session) readPump(hub *runtime.Hub, hs *runtime.Session) {
	ctx := context.Background()
	defer func() {
		hub.Disconnect(ctx, hs)
		s.close()
		s.conn.Close()
	}()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var env event.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.reject(ctx, "", errors.ErrMalformedEvent.Error())
			continue
		}
		s.dispatch(ctx, hub, hs, env)
	}
}

func (s *Session) dispatch(ctx context.Context, hub *runtime.Hub, hs *runtime.Session, env event.Envelope) {
	switch env.Event {
	case event.NameRegisterUser:
		var userID string
		if err := json.Unmarshal(env.Data, &userID); err != nil || userID == "" {
			s.reject(ctx, env.Event, "userId must be a non-empty string")
			return
		}
		if err := hub.RegisterUser(ctx, hs, userID); err != nil {
			s.reject(ctx, env.Event, err.Error())
		}

	case event.NameUnregisterUser:
		if err := hub.UnregisterUser(ctx, hs); err != nil {
			s.reject(ctx, env.Event, err.Error())
		}

	case event.NameSendMessage:
		var msg event.SendMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			s.reject(ctx, env.Event, errors.ErrMalformedEvent.Error())
			return
		}
		// Field-level validation happens in the relay, which also answers
		// the sender directly.
		hub.Relay(ctx, hs, msg)

	default:
		s.reject(ctx, env.Event, errors.ErrUnknownEvent.Error())
	}
}

func (s *Session) reject(ctx context.Context, eventName, reason string) {
	if err := s.Consume(ctx, event.EventRejected{Event: eventName, Reason: reason}); err != nil {
		s.log.Debug("could not deliver rejection", "conn_id", s.id, "error", err)
	}
}
