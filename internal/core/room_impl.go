package core

import (
	"sync"
	"sync/atomic"

	"github.com/dkeye/Captions/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomEntry is a threadsafe in-memory member set for one room.
// Once the last member leaves the entry is retired and refuses new members,
// so a join racing with the room's removal retries on a fresh entry.
type RoomEntry struct {
	id      domain.RoomID
	mu      sync.Mutex
	members map[domain.PeerID]*domain.Member
	retired atomic.Bool
}

func NewRoomEntry(id domain.RoomID) *RoomEntry {
	return &RoomEntry{
		id:      id,
		members: make(map[domain.PeerID]*domain.Member),
	}
}

func (r *RoomEntry) ID() domain.RoomID { return r.id }

// Retired reports whether the entry was emptied and must be replaced.
func (r *RoomEntry) Retired() bool { return r.retired.Load() }

// Add inserts peer and returns the other members. ok is false when the entry
// is retired; the caller must fetch a new entry and retry. A non-nil
// onAdded runs under the entry lock, so notifications it queues are ordered
// against every other change to this room. It must not block.
func (r *RoomEntry) Add(peer domain.PeerID, onAdded func(others []domain.PeerID)) (others []domain.PeerID, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.retired.Load() {
		return nil, false
	}
	others = make([]domain.PeerID, 0, len(r.members))
	for id := range r.members {
		if id != peer {
			others = append(others, id)
		}
	}
	if _, exists := r.members[peer]; !exists {
		r.members[peer] = domain.NewMember(peer)
		log.Debug().Str("module", "core.room").Str("room", string(r.id)).Str("peer", string(peer)).Msg("member added")
	}
	if onAdded != nil {
		onAdded(others)
	}
	return others, true
}

// Remove deletes peer and returns the members left behind. When the set
// becomes empty the entry retires itself and empty is true. A non-nil
// onRemoved runs under the entry lock when peer was found, like onAdded.
func (r *RoomEntry) Remove(peer domain.PeerID, onRemoved func(remaining []domain.PeerID)) (remaining []domain.PeerID, found, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, found = r.members[peer]; !found {
		return nil, false, len(r.members) == 0
	}
	delete(r.members, peer)
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Str("peer", string(peer)).Msg("member removed")
	empty = len(r.members) == 0
	if empty {
		r.retired.Store(true)
	} else {
		remaining = r.snapshotLocked()
	}
	if onRemoved != nil {
		onRemoved(remaining)
	}
	return remaining, true, empty
}

func (r *RoomEntry) Members() []domain.PeerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *RoomEntry) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

func (r *RoomEntry) snapshotLocked() []domain.PeerID {
	out := make([]domain.PeerID, 0, len(r.members))
	for id := range r.members {
		out = append(out, id)
	}
	return out
}
