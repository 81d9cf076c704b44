package app

import (
	"sync"

	"github.com/dkeye/Captions/internal/core"
	"github.com/dkeye/Captions/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomManagerImpl is the in-memory core.RoomRegistry.
//
// mu guards only the index maps; a room's member set is guarded by its own
// entry lock, so joins and leaves of unrelated rooms never wait on each other.
// Lock order is entry before mu.
type RoomManagerImpl struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomID]*core.RoomEntry
	byPeer map[domain.PeerID]*core.RoomEntry
}

func NewRoomManager() *RoomManagerImpl {
	return &RoomManagerImpl{
		rooms:  make(map[domain.RoomID]*core.RoomEntry),
		byPeer: make(map[domain.PeerID]*core.RoomEntry),
	}
}

var _ core.RoomRegistry = (*RoomManagerImpl)(nil)

func (f *RoomManagerImpl) getOrCreate(id domain.RoomID) *core.RoomEntry {
	f.mu.RLock()
	room, ok := f.rooms[id]
	f.mu.RUnlock()
	if ok && !room.Retired() {
		return room
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok = f.rooms[id]; ok && !room.Retired() {
		return room
	}
	room = core.NewRoomEntry(id)
	f.rooms[id] = room
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room created")
	return room
}

func (f *RoomManagerImpl) Join(id domain.RoomID, peer domain.PeerID, onJoined func([]domain.PeerID)) []domain.PeerID {
	if cur, ok := f.RoomOf(peer); ok && cur != id {
		f.Leave(peer, nil)
	}
	for {
		room := f.getOrCreate(id)
		others, ok := room.Add(peer, onJoined)
		if !ok {
			continue
		}
		f.mu.Lock()
		f.byPeer[peer] = room
		f.mu.Unlock()
		return others
	}
}

func (f *RoomManagerImpl) Leave(peer domain.PeerID, onLeft func(domain.RoomID, []domain.PeerID)) (domain.RoomID, []domain.PeerID, bool) {
	f.mu.RLock()
	room, ok := f.byPeer[peer]
	f.mu.RUnlock()
	if !ok {
		return "", nil, false
	}
	var onRemoved func([]domain.PeerID)
	if onLeft != nil {
		onRemoved = func(remaining []domain.PeerID) { onLeft(room.ID(), remaining) }
	}
	remaining, found, empty := room.Remove(peer, onRemoved)

	f.mu.Lock()
	if f.byPeer[peer] == room {
		delete(f.byPeer, peer)
	}
	if empty && f.rooms[room.ID()] == room {
		delete(f.rooms, room.ID())
		log.Info().Str("module", "app.rooms").Str("room", string(room.ID())).Msg("room deleted")
	}
	f.mu.Unlock()

	if !found {
		return "", nil, false
	}
	return room.ID(), remaining, true
}

func (f *RoomManagerImpl) MembersOf(id domain.RoomID) []domain.PeerID {
	f.mu.RLock()
	room, ok := f.rooms[id]
	f.mu.RUnlock()
	if !ok {
		return nil
	}
	return room.Members()
}

func (f *RoomManagerImpl) RoomOf(peer domain.PeerID) (domain.RoomID, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.byPeer[peer]
	if !ok {
		return "", false
	}
	return room.ID(), true
}

func (f *RoomManagerImpl) List() []core.RoomInfo {
	f.mu.RLock()
	rooms := make([]*core.RoomEntry, 0, len(f.rooms))
	for _, r := range f.rooms {
		rooms = append(rooms, r)
	}
	f.mu.RUnlock()

	out := make([]core.RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		if n := r.MemberCount(); n > 0 {
			out = append(out, core.RoomInfo{Name: r.ID(), MemberCount: n})
		}
	}
	return out
}
