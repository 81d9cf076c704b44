// Package orch turns relay traffic into negotiated peer sessions with one
// open caption channel per remote peer.
package orch

import (
	"context"
	"time"

	"github.com/dkeye/Captions/internal/com"
	"github.com/dkeye/Captions/internal/core"
	"github.com/dkeye/Captions/internal/domain"
	"github.com/dkeye/Captions/internal/proto"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const (
	DefaultNegotiationTimeout = 30 * time.Second
	// earlyCandidateLimit bounds candidates held for a sender whose offer
	// has not arrived yet.
	earlyCandidateLimit = 64
	eventBuffer         = 256
)

// Signaler sends one message to the relay.
type Signaler interface {
	Send(proto.Message) error
}

// Observer is told about state changes. Calls come from the loop goroutine
// and must not block.
type Observer interface {
	JoinStateChanged(state core.JoinState)
	SessionStateChanged(remote domain.PeerID, state core.SessionState, reason core.CloseReason)
}

// Channels is the directory of open caption channels keyed by remote peer.
type Channels = com.Map[domain.PeerID, core.DataChannel]

type Options struct {
	Room     domain.RoomID
	Signal   Signaler
	Conns    core.ConnectionFactory
	Channels *Channels
	// Inbound receives raw caption payloads. It is called from pion
	// goroutines.
	Inbound            func(remote domain.PeerID, raw []byte)
	Observer           Observer
	NegotiationTimeout time.Duration
}

type Orchestrator struct {
	opts   Options
	events chan event
	done   chan struct{}

	// Everything below is owned by the Run goroutine.
	self       domain.PeerID
	signalUp   bool
	mediaReady bool
	tracks     []webrtc.TrackLocal
	join       core.JoinState
	sessions   map[domain.PeerID]*Session
	early      map[domain.PeerID][]webrtc.ICECandidateInit
	// departed holds peers that left while our join was in flight; the ack
	// may still list them.
	departed map[domain.PeerID]struct{}
	gen      uint64
}

func New(opts Options) *Orchestrator {
	if opts.Channels == nil {
		opts.Channels = com.NewMap[domain.PeerID, core.DataChannel]()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Inbound == nil {
		opts.Inbound = func(domain.PeerID, []byte) {}
	}
	if opts.NegotiationTimeout <= 0 {
		opts.NegotiationTimeout = DefaultNegotiationTimeout
	}
	return &Orchestrator{
		opts:     opts,
		events:   make(chan event, eventBuffer),
		done:     make(chan struct{}),
		sessions: make(map[domain.PeerID]*Session),
		early:    make(map[domain.PeerID][]webrtc.ICECandidateInit),
		departed: make(map[domain.PeerID]struct{}),
	}
}

// Channels returns the open caption channel directory.
func (o *Orchestrator) Channels() *Channels { return o.opts.Channels }

// Run processes events until ctx is done, then closes every session.
func (o *Orchestrator) Run(ctx context.Context) {
	defer close(o.done)
	log.Info().Str("module", "orch").Str("room", string(o.opts.Room)).Msg("orchestrator started")
	for {
		select {
		case <-ctx.Done():
			o.closeAll(core.ReasonShutdown)
			log.Info().Str("module", "orch").Msg("orchestrator stopped")
			return
		case ev := <-o.events:
			o.handle(ev)
		}
	}
}

func (o *Orchestrator) post(ev event) {
	select {
	case o.events <- ev:
	case <-o.done:
	}
}

func (o *Orchestrator) SignalConnected()    { o.post(evSignalUp{}) }
func (o *Orchestrator) SignalDisconnected() { o.post(evSignalDown{}) }
func (o *Orchestrator) Deliver(msg proto.Message) {
	o.post(evMessage{msg: msg})
}

// MediaReady marks local media available; tracks are added to every new
// session.
func (o *Orchestrator) MediaReady(tracks []webrtc.TrackLocal) {
	o.post(evMediaReady{tracks: tracks})
}

func (o *Orchestrator) MediaUnavailable() { o.post(evMediaUnavailable{}) }

// Sessions returns a snapshot of the live sessions, or nil once the loop
// has stopped.
func (o *Orchestrator) Sessions() []SessionInfo {
	reply := make(chan []SessionInfo, 1)
	o.post(evQuery{reply: reply})
	select {
	case out := <-reply:
		return out
	case <-o.done:
		return nil
	}
}

func (o *Orchestrator) handle(ev event) {
	switch e := ev.(type) {
	case evSignalUp:
		o.onSignalUp()
	case evSignalDown:
		o.onSignalDown()
	case evMessage:
		o.onMessage(e.msg)
	case evMediaReady:
		o.onMediaReady(e.tracks)
	case evMediaUnavailable:
		o.mediaReady = false
		log.Info().Str("module", "orch").Msg("local media unavailable")
	case evQuery:
		out := make([]SessionInfo, 0, len(o.sessions))
		for _, s := range o.sessions {
			out = append(out, s.Info())
		}
		e.reply <- out
	case evDescription:
		o.onDescription(e)
	case evFailed:
		o.onFailed(e)
	case evLocalCandidate:
		o.onLocalCandidate(e)
	case evICEState:
		o.onICEState(e)
	case evTrack:
		o.onTrack(e)
	case evChannelOpen:
		o.onChannelOpen(e)
	case evChannelClosed:
		o.onChannelClosed(e)
	case evTimeout:
		if s := o.live(e.peer, e.gen); s != nil && s.State != core.SessionConnected {
			o.closeSession(s, core.ReasonTimeout)
		}
	}
}

// onMessage dispatches relay traffic. Frames without a sender or echoing
// our own id are ignored.
func (o *Orchestrator) onMessage(msg proto.Message) {
	switch m := msg.(type) {
	case proto.Welcome:
		o.self = m.PeerID
		log.Info().Str("module", "orch").Str("self", string(m.PeerID)).Msg("welcome")
	case proto.JoinRoomAck:
		o.onJoinAck(m)
	case proto.PeerJoined:
		log.Info().Str("module", "orch").Str("peer", string(m.PeerID)).Msg("peer joined, waiting for offer")
	case proto.PeerLeft:
		o.onPeerLeft(m.PeerID)
	case proto.Offer:
		if o.fromSelf(m.SenderID) {
			return
		}
		o.onOffer(m)
	case proto.Answer:
		if o.fromSelf(m.SenderID) {
			return
		}
		o.onAnswer(m)
	case proto.IceCandidate:
		if o.fromSelf(m.SenderID) {
			return
		}
		o.onRemoteCandidate(m)
	default:
		log.Warn().Str("module", "orch").Str("type", string(msg.Type())).Msg("unexpected message from relay")
	}
}

func (o *Orchestrator) fromSelf(sender domain.PeerID) bool {
	return sender == "" || (o.self != "" && sender == o.self)
}

// live returns the session for peer if it still has generation gen.
func (o *Orchestrator) live(peer domain.PeerID, gen uint64) *Session {
	s, ok := o.sessions[peer]
	if !ok || s.gen != gen {
		return nil
	}
	return s
}

type nopObserver struct{}

func (nopObserver) JoinStateChanged(core.JoinState) {}
func (nopObserver) SessionStateChanged(domain.PeerID, core.SessionState, core.CloseReason) {
}
