package app

import (
	"errors"

	"github.com/dkeye/Captions/internal/core"
	"github.com/dkeye/Captions/internal/domain"
	"github.com/dkeye/Captions/internal/proto"
	"github.com/rs/zerolog/log"
)

// Relay routes signaling messages between the connections of a room.
// Handlers for one connection run on that connection's read pump; handlers
// for different connections run concurrently.
type Relay struct {
	Rooms   core.RoomRegistry
	Conns   *Registry
	Policy  Policy
	Limiter *RoomRateLimiter
	Metrics *Metrics
}

func NewRelay(rooms core.RoomRegistry, conns *Registry, policy Policy, limiter *RoomRateLimiter, metrics *Metrics) *Relay {
	if policy == nil {
		policy = SimplePolicy{}
	}
	return &Relay{Rooms: rooms, Conns: conns, Policy: policy, Limiter: limiter, Metrics: metrics}
}

// OnConnect registers a fresh connection and tells it its peer id.
func (r *Relay) OnConnect(peer domain.PeerID, conn core.SignalConnection) {
	r.Conns.Bind(peer, conn)
	r.sendTo("", peer, proto.Welcome{PeerID: peer})
}

// OnFrame decodes one inbound frame and dispatches it. Bad frames are
// logged and dropped; the connection stays open.
func (r *Relay) OnFrame(from domain.PeerID, data []byte) {
	msg, err := proto.Decode(data)
	if err != nil {
		if errors.Is(err, core.ErrUnknownType) {
			r.Metrics.Dropped(DropUnknownType)
		} else {
			r.Metrics.Dropped(DropMalformed)
		}
		log.Warn().Err(core.NewSignalingError("decode", from, err)).Str("module", "app.relay").Msg("frame dropped")
		return
	}
	if err := r.Handle(from, msg); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("type", string(msg.Type())).Msg("message dropped")
	}
}

// Handle dispatches one decoded message from peer from. The returned error
// is a *core.SignalingError for messages that were dropped.
func (r *Relay) Handle(from domain.PeerID, msg proto.Message) error {
	switch m := msg.(type) {
	case proto.JoinRoom:
		r.Metrics.Message(m.Type())
		r.handleJoin(from, m.RoomID)
		return nil
	case proto.Offer:
		if m.RoomID == "" {
			return r.reject("offer", from, core.ErrMissingRoomID)
		}
		if m.SDP == nil {
			return r.reject("offer", from, core.ErrMissingPayload)
		}
		r.Metrics.Message(m.Type())
		room, target := m.RoomID, m.TargetID
		m.RoomID, m.TargetID, m.SenderID = "", "", from
		r.forward(from, room, target, m)
		return nil
	case proto.Answer:
		if m.TargetID == "" {
			return r.reject("answer", from, core.ErrMissingTargetID)
		}
		if m.SDP == nil {
			return r.reject("answer", from, core.ErrMissingPayload)
		}
		r.Metrics.Message(m.Type())
		room, target := m.RoomID, m.TargetID
		m.RoomID, m.TargetID, m.SenderID = "", "", from
		r.forward(from, room, target, m)
		return nil
	case proto.IceCandidate:
		if m.RoomID == "" {
			return r.reject("ice-candidate", from, core.ErrMissingRoomID)
		}
		if m.Candidate == nil {
			return r.reject("ice-candidate", from, core.ErrMissingPayload)
		}
		r.Metrics.Message(m.Type())
		room, target := m.RoomID, m.TargetID
		m.RoomID, m.TargetID, m.SenderID = "", "", from
		r.forward(from, room, target, m)
		return nil
	default:
		r.Metrics.Dropped(DropUnexpected)
		return core.NewSignalingError(string(msg.Type()), from, core.ErrUnexpectedSignal)
	}
}

// OnDisconnect removes peer from its room and notifies the members left
// behind. Repeated calls for the same peer do nothing.
func (r *Relay) OnDisconnect(peer domain.PeerID) {
	if !r.Conns.Unbind(peer) {
		return
	}
	if r.Limiter != nil {
		r.Limiter.Forget(peer)
	}
	room, _, ok := r.Rooms.Leave(peer, r.announceLeave(peer))
	if !ok {
		return
	}
	log.Info().Str("module", "app.relay").Str("peer", string(peer)).Str("room", string(room)).Msg("left on disconnect")
}

// announceLeave returns the callback that tells the members left behind.
// It runs under the room lock, so a member that joins concurrently either
// sees peer in its ack and then this PeerLeft, or sees neither.
func (r *Relay) announceLeave(peer domain.PeerID) func(domain.RoomID, []domain.PeerID) {
	return func(room domain.RoomID, remaining []domain.PeerID) {
		r.fanout(room, remaining, proto.PeerLeft{PeerID: peer})
	}
}

func (r *Relay) handleJoin(from domain.PeerID, room domain.RoomID) {
	if err := room.Validate(); err != nil {
		r.sendTo("", from, proto.JoinRoomAck{Error: err.Error()})
		log.Warn().Err(core.NewSignalingError("join-room", from, err)).Str("module", "app.relay").Msg("join refused")
		return
	}
	if r.Limiter != nil && !r.Limiter.Allow(from) {
		r.Metrics.Dropped(DropRateLimited)
		r.sendTo("", from, proto.JoinRoomAck{Error: DropRateLimited})
		log.Warn().Str("module", "app.relay").Str("peer", string(from)).Msg("join rate limited")
		return
	}

	prev, inRoom := r.Rooms.RoomOf(from)
	if inRoom && prev != room {
		r.Rooms.Leave(from, r.announceLeave(from))
	}
	rejoin := inRoom && prev == room

	// The ack and PeerJoined are queued while the room is locked so that
	// they are ordered against concurrent leaves of the same room.
	others := r.Rooms.Join(room, from, func(members []domain.PeerID) {
		r.sendTo(room, from, proto.JoinRoomAck{Success: true, Peers: members})
		if !rejoin {
			r.fanout(room, members, proto.PeerJoined{PeerID: from})
		}
	})
	log.Info().Str("module", "app.relay").Str("peer", string(from)).Str("room", string(room)).Int("peers", len(others)).Msg("joined")
}

// forward sends msg to target, or to every other member of room when
// target is empty. An unknown target is ignored.
func (r *Relay) forward(from domain.PeerID, room domain.RoomID, target domain.PeerID, msg proto.Message) {
	if target != "" {
		if _, ok := r.Conns.Get(target); !ok {
			log.Debug().Str("module", "app.relay").Str("target", string(target)).Msg("unknown target")
			return
		}
		r.sendTo(room, target, msg)
		return
	}
	members := r.Rooms.MembersOf(room)
	others := make([]domain.PeerID, 0, len(members))
	for _, p := range members {
		if p != from {
			others = append(others, p)
		}
	}
	r.fanout(room, others, msg)
}

func (r *Relay) fanout(room domain.RoomID, peers []domain.PeerID, msg proto.Message) {
	if len(peers) == 0 {
		return
	}
	frame, err := proto.Encode(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("encode")
		return
	}
	for _, p := range peers {
		r.deliver(room, p, frame)
	}
}

func (r *Relay) sendTo(room domain.RoomID, peer domain.PeerID, msg proto.Message) {
	frame, err := proto.Encode(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("encode")
		return
	}
	r.deliver(room, peer, frame)
}

func (r *Relay) deliver(room domain.RoomID, peer domain.PeerID, frame core.Frame) {
	conn, ok := r.Conns.Get(peer)
	if !ok {
		return
	}
	err := conn.TrySend(frame)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrBackpressure):
		switch r.Policy.OnBackPressure(room, peer) {
		case KickMember:
			r.Metrics.Dropped(DropKicked)
			r.Conns.Kick(peer)
		case DropFrame:
			r.Metrics.Dropped(DropBackpressure)
		}
	default:
		r.Metrics.Dropped(DropClosed)
	}
}

func (r *Relay) reject(op string, from domain.PeerID, err error) error {
	r.Metrics.Dropped(DropMalformed)
	return core.NewSignalingError(op, from, err)
}
