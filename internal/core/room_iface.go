package core

import (
	"github.com/dkeye/Captions/internal/domain"
)

type RoomInfo struct {
	Name        domain.RoomID `json:"name"`
	MemberCount int           `json:"client_count"`
}

// RoomRegistry is the authoritative room -> members mapping.
// It has no network awareness and never touches transport resources.
//
// Mutations of one room are linearized; unrelated rooms do not contend.
type RoomRegistry interface {
	// Join adds peer to room, leaving any other room first, and returns the
	// members that were already present (peer excluded, unordered).
	// onJoined, when non-nil, runs with the same list while the room is
	// still locked; it must not block.
	Join(room domain.RoomID, peer domain.PeerID, onJoined func(others []domain.PeerID)) []domain.PeerID
	// Leave removes peer from its room. ok is false when peer was in no room.
	// onLeft, when non-nil, runs while the room is still locked.
	Leave(peer domain.PeerID, onLeft func(room domain.RoomID, remaining []domain.PeerID)) (room domain.RoomID, remaining []domain.PeerID, ok bool)
	MembersOf(room domain.RoomID) []domain.PeerID
	RoomOf(peer domain.PeerID) (domain.RoomID, bool)
	List() []RoomInfo
}
