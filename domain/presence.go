// Package domain contains core concepts of the relay system.
// This file defines presence identifiers. No transport or runtime logic here.
package domain

// ConnID identifies one live transport session. Assigned by the transport
// layer when the connection is established, never reused while live.
type ConnID string

// Snapshot is the complete set of currently registered user identities at a
// point in time. Recomputed on every registry mutation, never diffed.
type Snapshot []string
