package orch

import (
	"github.com/dkeye/Captions/internal/core"
	"github.com/dkeye/Captions/internal/domain"
	"github.com/dkeye/Captions/internal/proto"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) setJoin(state core.JoinState) {
	if o.join == state {
		return
	}
	log.Info().Str("module", "orch").Str("from", o.join.String()).Str("to", state.String()).Msg("join state")
	o.join = state
	if state != core.JoinJoining {
		clear(o.departed)
	}
	o.opts.Observer.JoinStateChanged(state)
}

// tryJoin sends a join when media and signaling are both up and no
// attempt is outstanding.
func (o *Orchestrator) tryJoin() {
	if !o.mediaReady || !o.signalUp || o.join != core.JoinIdle {
		return
	}
	if err := o.opts.Signal.Send(proto.JoinRoom{RoomID: o.opts.Room}); err != nil {
		log.Warn().Err(err).Str("module", "orch").Msg("join send failed")
		return
	}
	o.setJoin(core.JoinJoining)
}

func (o *Orchestrator) onSignalUp() {
	o.signalUp = true
	log.Info().Str("module", "orch").Msg("signaling connected")
	o.tryJoin()
}

func (o *Orchestrator) onSignalDown() {
	o.signalUp = false
	o.self = ""
	o.closeAll(core.ReasonSignalLost)
	o.setJoin(core.JoinIdle)
	log.Warn().Str("module", "orch").Msg("signaling lost")
}

func (o *Orchestrator) onJoinAck(ack proto.JoinRoomAck) {
	if o.join != core.JoinJoining {
		log.Warn().Str("module", "orch").Str("state", o.join.String()).Msg("ack without pending join")
		return
	}
	if !ack.Success {
		log.Error().Str("module", "orch").Str("room", string(o.opts.Room)).Str("error", ack.Error).Msg("join refused")
		o.setJoin(core.JoinIdle)
		return
	}
	departed := o.departed
	o.departed = make(map[domain.PeerID]struct{})
	o.setJoin(core.JoinJoined)
	for _, peer := range ack.Peers {
		if peer == o.self {
			continue
		}
		if _, gone := departed[peer]; gone {
			log.Info().Str("module", "orch").Str("peer", string(peer)).Msg("peer left before ack, skipped")
			continue
		}
		o.startInitiator(peer)
	}
}

func (o *Orchestrator) onPeerLeft(peer domain.PeerID) {
	if o.join == core.JoinJoining {
		o.departed[peer] = struct{}{}
	}
	delete(o.early, peer)
	if s, ok := o.sessions[peer]; ok {
		o.closeSession(s, core.ReasonPeerLeft)
	}
}

func (o *Orchestrator) closeAll(reason core.CloseReason) {
	for _, s := range o.sessions {
		o.closeSession(s, reason)
	}
	clear(o.early)
}
