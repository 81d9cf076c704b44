package domain

import "time"

// Member represents a peer's participation meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	ID       PeerID
	JoinedAt time.Time
}

// NewMember avoids raw literals in the registry and keeps construction obvious.
func NewMember(id PeerID) *Member {
	return &Member{ID: id, JoinedAt: time.Now()}
}
