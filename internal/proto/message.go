// Package proto defines the signaling messages exchanged between clients
// and the relay, and their JSON wire form.
package proto

import (
	"github.com/dkeye/Captions/internal/domain"
	"github.com/pion/webrtc/v4"
)

type Type string

const (
	TypeWelcome      Type = "welcome"
	TypeJoinRoom     Type = "join-room"
	TypeJoinRoomAck  Type = "join-room-ack"
	TypePeerJoined   Type = "peer-joined"
	TypePeerLeft     Type = "peer-left"
	TypeOffer        Type = "offer"
	TypeAnswer       Type = "answer"
	TypeIceCandidate Type = "ice-candidate"
)

// Message is the closed set of signaling messages. Components dispatch on
// the concrete type with a single type switch.
type Message interface {
	Type() Type
	isMessage()
}

// Welcome tells a fresh connection the id the relay assigned to it.
type Welcome struct {
	PeerID domain.PeerID
}

type JoinRoom struct {
	RoomID domain.RoomID
}

type JoinRoomAck struct {
	Success bool
	Peers   []domain.PeerID
	Error   string
}

type PeerJoined struct {
	PeerID domain.PeerID
}

type PeerLeft struct {
	PeerID domain.PeerID
}

// Offer carries TargetID and RoomID from a client; the relay clears both
// and stamps SenderID before forwarding.
type Offer struct {
	SDP      *webrtc.SessionDescription
	RoomID   domain.RoomID
	TargetID domain.PeerID
	SenderID domain.PeerID
}

type Answer struct {
	SDP      *webrtc.SessionDescription
	RoomID   domain.RoomID
	TargetID domain.PeerID
	SenderID domain.PeerID
}

type IceCandidate struct {
	Candidate *webrtc.ICECandidateInit
	RoomID    domain.RoomID
	TargetID  domain.PeerID
	SenderID  domain.PeerID
}

func (Welcome) Type() Type      { return TypeWelcome }
func (JoinRoom) Type() Type     { return TypeJoinRoom }
func (JoinRoomAck) Type() Type  { return TypeJoinRoomAck }
func (PeerJoined) Type() Type   { return TypePeerJoined }
func (PeerLeft) Type() Type     { return TypePeerLeft }
func (Offer) Type() Type        { return TypeOffer }
func (Answer) Type() Type       { return TypeAnswer }
func (IceCandidate) Type() Type { return TypeIceCandidate }

func (Welcome) isMessage()      {}
func (JoinRoom) isMessage()     {}
func (JoinRoomAck) isMessage()  {}
func (PeerJoined) isMessage()   {}
func (PeerLeft) isMessage()     {}
func (Offer) isMessage()        {}
func (Answer) isMessage()       {}
func (IceCandidate) isMessage() {}
