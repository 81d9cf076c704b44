// Package domain contains identifiers and validation, no transport or lifecycle logic.
package domain

import "github.com/google/uuid"

// PeerID identifies one signaling connection. It is assigned by the relay
// and stays stable for the lifetime of that connection only.
type PeerID string

// NewPeerID returns a fresh random id for a new connection.
func NewPeerID() PeerID {
	return PeerID(uuid.NewString())
}

func (id PeerID) String() string { return string(id) }
