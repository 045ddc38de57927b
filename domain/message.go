// Package domain contains core concepts of the relay system.
// This file defines direct messages exchanged between users.
// Messages are immutable once created; timestamps are always server-side.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents one direct message between two users.
type Message struct {
	ID          uuid.UUID `json:"id"`
	SenderID    string    `json:"sender"`
	RecipientID string    `json:"recipient"`
	Text        string    `json:"text"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"createdAt"`
}
