package orch

import (
	"time"

	"github.com/dkeye/Captions/internal/app/captions"
	"github.com/dkeye/Captions/internal/core"
	"github.com/dkeye/Captions/internal/domain"
	"github.com/dkeye/Captions/internal/proto"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) onMediaReady(tracks []webrtc.TrackLocal) {
	o.mediaReady = true
	o.tracks = tracks
	log.Info().Str("module", "orch").Int("tracks", len(tracks)).Msg("local media ready")
	o.tryJoin()
}

// newSession creates and registers a session. The caller has checked that
// none exists for peer.
func (o *Orchestrator) newSession(peer domain.PeerID, role core.Role) *Session {
	o.gen++
	gen := o.gen
	s := &Session{Remote: peer, Role: role, State: core.SessionNew, gen: gen}

	conn, err := o.opts.Conns.NewConnection(peer, core.ConnectionHandlers{
		OnICECandidate: func(c webrtc.ICECandidateInit) {
			o.post(evLocalCandidate{peer: peer, gen: gen, cand: c})
		},
		OnICEState: func(st webrtc.ICEConnectionState) {
			o.post(evICEState{peer: peer, gen: gen, state: st})
		},
		OnTrack: func(kind webrtc.RTPCodecType) {
			o.post(evTrack{peer: peer, gen: gen, kind: kind})
		},
		OnDataChannel: func(dc core.DataChannel) {
			if dc.Label() != captions.Label {
				log.Debug().Str("module", "orch").Str("label", dc.Label()).Msg("ignoring data channel")
				return
			}
			o.bindChannel(peer, gen, dc)
		},
	})
	if err != nil {
		log.Error().Err(core.NewNegotiationError("new-connection", peer, err)).Str("module", "orch").Msg("session not created")
		o.opts.Observer.SessionStateChanged(peer, core.SessionClosed, core.ReasonNegotiationFailed)
		return nil
	}
	s.conn = conn
	s.worker = newWorker()
	s.timer = time.AfterFunc(o.opts.NegotiationTimeout, func() {
		o.post(evTimeout{peer: peer, gen: gen})
	})
	o.sessions[peer] = s

	tracks := o.tracks
	s.worker.do(func() {
		for _, t := range tracks {
			if err := conn.AddLocalTrack(t); err != nil {
				o.post(evFailed{peer: peer, gen: gen, err: core.NewNegotiationError("add-track", peer, err), fatal: true})
				return
			}
		}
	})

	log.Info().Str("module", "orch").Str("peer", string(peer)).Str("role", role.String()).Msg("session created")
	o.opts.Observer.SessionStateChanged(peer, core.SessionNew, core.ReasonNone)
	return s
}

func (o *Orchestrator) startInitiator(peer domain.PeerID) {
	if _, ok := o.sessions[peer]; ok {
		return
	}
	s := o.newSession(peer, core.RoleInitiator)
	if s == nil {
		return
	}
	gen, conn := s.gen, s.conn
	s.worker.do(func() {
		dc, err := conn.CreateDataChannel(captions.Label)
		if err != nil {
			o.post(evDescription{peer: peer, gen: gen, err: core.NewNegotiationError("create-channel", peer, err)})
			return
		}
		o.bindChannel(peer, gen, dc)
		offer, err := conn.CreateOffer()
		if err != nil {
			err = core.NewNegotiationError("create-offer", peer, err)
		}
		o.post(evDescription{peer: peer, gen: gen, sdp: offer, err: err})
	})
}

func (o *Orchestrator) onOffer(m proto.Offer) {
	peer := m.SenderID
	switch {
	case m.SDP == nil:
		log.Warn().Err(core.NewSignalingError("offer", peer, core.ErrMissingPayload)).Str("module", "orch").Msg("offer dropped")
		return
	case o.join != core.JoinJoined:
		log.Warn().Str("module", "orch").Str("peer", string(peer)).Str("join", o.join.String()).Msg("offer while not joined, dropped")
		return
	case !o.mediaReady:
		log.Warn().Str("module", "orch").Str("peer", string(peer)).Msg("offer without local media, dropped")
		return
	}
	if _, ok := o.sessions[peer]; ok {
		log.Warn().Err(core.NewSignalingError("offer", peer, core.ErrUnexpectedSignal)).Str("module", "orch").Msg("session exists, offer dropped")
		return
	}

	s := o.newSession(peer, core.RoleResponder)
	if s == nil {
		return
	}
	gen, conn, sdp := s.gen, s.conn, *m.SDP
	s.remoteSet = true
	s.worker.do(func() {
		answer, err := conn.ApplyOffer(sdp)
		if err != nil {
			err = core.NewNegotiationError("apply-offer", peer, err)
		}
		o.post(evDescription{peer: peer, gen: gen, sdp: answer, err: err})
	})
	for _, c := range o.early[peer] {
		o.queueCandidate(s, c)
	}
	delete(o.early, peer)
}

func (o *Orchestrator) onAnswer(m proto.Answer) {
	peer := m.SenderID
	s, ok := o.sessions[peer]
	if !ok {
		log.Warn().Err(core.NewSignalingError("answer", peer, core.ErrNoSession)).Str("module", "orch").Msg("answer dropped")
		return
	}
	if s.Role != core.RoleInitiator || s.remoteSet || m.SDP == nil {
		log.Warn().Err(core.NewSignalingError("answer", peer, core.ErrUnexpectedSignal)).Str("module", "orch").Msg("answer dropped")
		return
	}
	gen, conn, sdp := s.gen, s.conn, *m.SDP
	s.remoteSet = true
	s.worker.do(func() {
		if err := conn.ApplyAnswer(sdp); err != nil {
			o.post(evFailed{peer: peer, gen: gen, err: core.NewNegotiationError("apply-answer", peer, err), fatal: true})
		}
	})
	for _, c := range s.pending {
		o.queueCandidate(s, c)
	}
	s.pending = nil
}

func (o *Orchestrator) onRemoteCandidate(m proto.IceCandidate) {
	peer := m.SenderID
	if m.Candidate == nil {
		return
	}
	s, ok := o.sessions[peer]
	if !ok {
		if o.join != core.JoinJoined {
			return
		}
		q := o.early[peer]
		if len(q) >= earlyCandidateLimit {
			log.Warn().Str("module", "orch").Str("peer", string(peer)).Msg("early candidate queue full, dropped")
			return
		}
		o.early[peer] = append(q, *m.Candidate)
		return
	}
	if !s.remoteSet {
		s.pending = append(s.pending, *m.Candidate)
		return
	}
	o.queueCandidate(s, *m.Candidate)
}

func (o *Orchestrator) queueCandidate(s *Session, c webrtc.ICECandidateInit) {
	peer, gen, conn := s.Remote, s.gen, s.conn
	s.worker.do(func() {
		if err := conn.AddICECandidate(c); err != nil {
			o.post(evFailed{peer: peer, gen: gen, err: core.NewNegotiationError("add-candidate", peer, err)})
		}
	})
}

// onDescription sends the local offer or answer and releases candidates
// gathered while it was being created.
func (o *Orchestrator) onDescription(e evDescription) {
	s := o.live(e.peer, e.gen)
	if s == nil {
		log.Debug().Str("module", "orch").Str("peer", string(e.peer)).Msg("late description ignored")
		return
	}
	if e.err != nil {
		log.Error().Err(e.err).Str("module", "orch").Msg("negotiation failed")
		o.closeSession(s, core.ReasonNegotiationFailed)
		return
	}

	sdp := e.sdp
	var msg proto.Message
	if s.Role == core.RoleInitiator {
		msg = proto.Offer{SDP: &sdp, RoomID: o.opts.Room, TargetID: s.Remote}
	} else {
		msg = proto.Answer{SDP: &sdp, RoomID: o.opts.Room, TargetID: s.Remote}
	}
	if err := o.opts.Signal.Send(msg); err != nil {
		log.Error().Err(core.NewNegotiationError("send-"+string(msg.Type()), s.Remote, err)).Str("module", "orch").Msg("negotiation failed")
		o.closeSession(s, core.ReasonNegotiationFailed)
		return
	}
	s.sdpSent = true
	for _, c := range s.localPending {
		o.sendCandidate(s, c)
	}
	s.localPending = nil

	s.State = core.SessionNegotiating
	o.opts.Observer.SessionStateChanged(s.Remote, s.State, core.ReasonNone)
	o.checkConnected(s)
}

func (o *Orchestrator) onFailed(e evFailed) {
	s := o.live(e.peer, e.gen)
	if s == nil {
		return
	}
	if !e.fatal {
		log.Warn().Err(e.err).Str("module", "orch").Msg("negotiation step failed")
		return
	}
	log.Error().Err(e.err).Str("module", "orch").Msg("negotiation failed")
	o.closeSession(s, core.ReasonNegotiationFailed)
}

func (o *Orchestrator) onLocalCandidate(e evLocalCandidate) {
	s := o.live(e.peer, e.gen)
	if s == nil {
		return
	}
	if !s.sdpSent {
		s.localPending = append(s.localPending, e.cand)
		return
	}
	o.sendCandidate(s, e.cand)
}

func (o *Orchestrator) sendCandidate(s *Session, c webrtc.ICECandidateInit) {
	msg := proto.IceCandidate{Candidate: &c, RoomID: o.opts.Room, TargetID: s.Remote}
	if err := o.opts.Signal.Send(msg); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("peer", string(s.Remote)).Msg("candidate send failed")
	}
}

func (o *Orchestrator) onICEState(e evICEState) {
	s := o.live(e.peer, e.gen)
	if s == nil {
		return
	}
	log.Debug().Str("module", "orch").Str("peer", string(e.peer)).Str("ice", e.state.String()).Msg("ICE state")
	switch e.state {
	case webrtc.ICEConnectionStateConnected, webrtc.ICEConnectionStateCompleted:
		s.iceUp = true
		o.checkConnected(s)
	case webrtc.ICEConnectionStateFailed, webrtc.ICEConnectionStateDisconnected, webrtc.ICEConnectionStateClosed:
		o.closeSession(s, core.ReasonICEFailed)
	}
}

func (o *Orchestrator) onTrack(e evTrack) {
	s := o.live(e.peer, e.gen)
	if s == nil {
		return
	}
	s.tracks++
	log.Info().Str("module", "orch").Str("peer", string(e.peer)).Str("kind", e.kind.String()).Msg("inbound track")
	o.checkConnected(s)
}

func (o *Orchestrator) checkConnected(s *Session) {
	if !s.ready() {
		return
	}
	s.State = core.SessionConnected
	s.timer.Stop()
	log.Info().Str("module", "orch").Str("peer", string(s.Remote)).Msg("session connected")
	o.opts.Observer.SessionStateChanged(s.Remote, s.State, core.ReasonNone)
}

// bindChannel wires a caption channel of session gen. It runs on pion or
// worker goroutines and only posts events.
func (o *Orchestrator) bindChannel(peer domain.PeerID, gen uint64, dc core.DataChannel) {
	dc.OnOpen(func() { o.post(evChannelOpen{peer: peer, gen: gen, dc: dc}) })
	dc.OnClose(func() { o.post(evChannelClosed{peer: peer, gen: gen, dc: dc}) })
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		o.opts.Inbound(peer, msg.Data)
	})
	if dc.ReadyState() == webrtc.DataChannelStateOpen {
		o.post(evChannelOpen{peer: peer, gen: gen, dc: dc})
	}
}

func (o *Orchestrator) onChannelOpen(e evChannelOpen) {
	s := o.live(e.peer, e.gen)
	if s == nil || s.channelOpen {
		return
	}
	s.channel = e.dc
	s.channelOpen = true
	o.opts.Channels.Put(e.peer, e.dc)
	log.Info().Str("module", "orch").Str("peer", string(e.peer)).Msg("caption channel open")
}

func (o *Orchestrator) onChannelClosed(e evChannelClosed) {
	s := o.live(e.peer, e.gen)
	if s == nil || s.channel != e.dc {
		return
	}
	s.channelOpen = false
	o.opts.Channels.RemoveIf(e.peer, func(dc core.DataChannel) bool { return dc == e.dc })
	log.Info().Str("module", "orch").Str("peer", string(e.peer)).Msg("caption channel closed")
}

// closeSession is the single exit from every state. The connection is
// closed on the session worker after queued work drains.
func (o *Orchestrator) closeSession(s *Session, reason core.CloseReason) {
	if s.State == core.SessionClosed {
		return
	}
	s.State = core.SessionClosed
	s.timer.Stop()
	if cur, ok := o.sessions[s.Remote]; ok && cur == s {
		delete(o.sessions, s.Remote)
	}
	if s.channel != nil {
		ch := s.channel
		o.opts.Channels.RemoveIf(s.Remote, func(dc core.DataChannel) bool { return dc == ch })
	}
	conn, peer := s.conn, s.Remote
	s.worker.stop(func() {
		if err := conn.Close(); err != nil {
			log.Debug().Err(err).Str("module", "orch").Str("peer", string(peer)).Msg("close connection")
		}
	})
	log.Info().Str("module", "orch").Str("peer", string(peer)).Str("reason", string(reason)).Msg("session closed")
	o.opts.Observer.SessionStateChanged(peer, core.SessionClosed, reason)
}
