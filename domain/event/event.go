// Package event defines the wire-level event contract shared with clients.
// Event names and payload shapes are fixed: clients and server must agree on
// them byte for byte, so nothing here may be renamed casually.
package event

import (
	"encoding/json"
	"time"
)

// Client to server event names.
const (
	NameRegisterUser   = "register-user"
	NameUnregisterUser = "unregister-user"
	NameSendMessage    = "send-message"
)

// Server to client event names.
const (
	NameOnlineUsers    = "online-users"
	NameReceiveMessage = "receive-message"
	NameMessageError   = "message-error"
	NameEventRejected  = "event-rejected"
)

// Envelope is the frame every websocket text message carries.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ServerEvent is anything the server can push to a connection.
type ServerEvent interface {
	EventName() string
	Payload() any
}

// OnlineUsers is the full presence snapshot, sent to every connection on
// every registry mutation. The payload is a bare array of user identities.
type OnlineUsers []string

func (o OnlineUsers) EventName() string { return NameOnlineUsers }
func (o OnlineUsers) Payload() any      { return []string(o) }

// ReceiveMessage is delivered only to the recipient's connection.
type ReceiveMessage struct {
	From      string    `json:"from"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func (r ReceiveMessage) EventName() string { return NameReceiveMessage }
func (r ReceiveMessage) Payload() any      { return r }

// MessageError is the delivery-failure notice sent back to the sender when
// the recipient has no live connection.
type MessageError struct {
	Error string `json:"error"`
	To    string `json:"to"`
}

func (m MessageError) EventName() string { return NameMessageError }
func (m MessageError) Payload() any      { return m }

// EventRejected surfaces a malformed or unauthorized client event back to
// the offending connection instead of dropping it silently.
type EventRejected struct {
	Event  string `json:"event"`
	Reason string `json:"reason"`
}

func (e EventRejected) EventName() string { return NameEventRejected }
func (e EventRejected) Payload() any      { return e }

// SendMessage is the client's relay request.
type SendMessage struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
	Text string `json:"text" validate:"required"`
}
