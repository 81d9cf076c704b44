package app

import (
	"sync"

	"github.com/dkeye/Captions/internal/core"
	"github.com/dkeye/Captions/internal/domain"
	"github.com/rs/zerolog/log"
)

// Registry maps live peer ids to their signaling connections.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.PeerID]core.SignalConnection
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[domain.PeerID]core.SignalConnection)}
}

func (r *Registry) Bind(peer domain.PeerID, conn core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[peer] = conn
	log.Info().Str("module", "app.registry").Str("peer", string(peer)).Msg("bound signal")
}

func (r *Registry) Get(peer domain.PeerID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[peer]
	return c, ok
}

// Unbind reports whether peer was bound, so disconnect cleanup runs once.
func (r *Registry) Unbind(peer domain.PeerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[peer]; !ok {
		return false
	}
	delete(r.conns, peer)
	log.Info().Str("module", "app.registry").Str("peer", string(peer)).Msg("unbind signal")
	return true
}

// Kick closes the peer's connection. The read pump notices and runs the
// regular disconnect path.
func (r *Registry) Kick(peer domain.PeerID) bool {
	conn, ok := r.Get(peer)
	if !ok {
		return false
	}
	conn.Close()
	log.Warn().Str("module", "app.registry").Str("peer", string(peer)).Msg("kicked")
	return true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
