package errors

import "fmt"

var (
	// Relay / lifecycle
	ErrMalformedEvent   = fmt.Errorf("malformed event")
	ErrUnknownEvent     = fmt.Errorf("unknown event")
	ErrSessionClosed    = fmt.Errorf("session already closed")
	ErrIdentityMismatch = fmt.Errorf("identity does not match authenticated user")
	ErrSendBufferFull   = fmt.Errorf("send buffer full")

	// Auth / accounts
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")

	// Persistence gateway
	ErrRecipientNotFound = fmt.Errorf("recipient not found")
	ErrEmptyMessage      = fmt.Errorf("recipient and text are required")

	// Supervision
	ErrWorkerPanic = fmt.Errorf("worker panic")
)
