package proto

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/dkeye/Captions/internal/core"
	"github.com/dkeye/Captions/internal/domain"
	"github.com/pion/webrtc/v4"
)

type envelope struct {
	Type Type `json:"type"`
}

type peerWire struct {
	Type   Type          `json:"type"`
	PeerID domain.PeerID `json:"peerId"`
}

type joinWire struct {
	Type   Type          `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
}

type ackWire struct {
	Type    Type            `json:"type"`
	Success bool            `json:"success"`
	Peers   []domain.PeerID `json:"peers"`
	Error   string          `json:"error,omitempty"`
}

type sdpWire struct {
	Type     Type                       `json:"type"`
	SDP      *webrtc.SessionDescription `json:"sdp"`
	RoomID   domain.RoomID              `json:"roomId,omitempty"`
	TargetID domain.PeerID              `json:"targetId,omitempty"`
	SenderID domain.PeerID              `json:"senderId,omitempty"`
}

type candidateWire struct {
	Type      Type                     `json:"type"`
	Candidate *webrtc.ICECandidateInit `json:"candidate"`
	RoomID    domain.RoomID            `json:"roomId,omitempty"`
	TargetID  domain.PeerID            `json:"targetId,omitempty"`
	SenderID  domain.PeerID            `json:"senderId,omitempty"`
}

// Encode returns the JSON frame for msg.
func Encode(msg Message) (core.Frame, error) {
	var v any
	switch m := msg.(type) {
	case Welcome:
		v = peerWire{Type: TypeWelcome, PeerID: m.PeerID}
	case JoinRoom:
		v = joinWire{Type: TypeJoinRoom, RoomID: m.RoomID}
	case JoinRoomAck:
		peers := m.Peers
		if peers == nil {
			peers = []domain.PeerID{}
		}
		v = ackWire{Type: TypeJoinRoomAck, Success: m.Success, Peers: peers, Error: m.Error}
	case PeerJoined:
		v = peerWire{Type: TypePeerJoined, PeerID: m.PeerID}
	case PeerLeft:
		v = peerWire{Type: TypePeerLeft, PeerID: m.PeerID}
	case Offer:
		v = sdpWire{Type: TypeOffer, SDP: m.SDP, RoomID: m.RoomID, TargetID: m.TargetID, SenderID: m.SenderID}
	case Answer:
		v = sdpWire{Type: TypeAnswer, SDP: m.SDP, RoomID: m.RoomID, TargetID: m.TargetID, SenderID: m.SenderID}
	case IceCandidate:
		v = candidateWire{Type: TypeIceCandidate, Candidate: m.Candidate, RoomID: m.RoomID, TargetID: m.TargetID, SenderID: m.SenderID}
	default:
		return nil, fmt.Errorf("encode %T: %w", msg, core.ErrUnknownType)
	}
	b, err := sonic.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Type(), err)
	}
	return b, nil
}

// Decode parses one frame. Unknown types yield core.ErrUnknownType and
// undecodable input core.ErrMalformedFrame. Field presence is not checked
// here; routing rules belong to the receiver.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedFrame, err)
	}
	switch env.Type {
	case TypeWelcome, TypePeerJoined, TypePeerLeft:
		var p peerWire
		if err := unmarshal(data, &p); err != nil {
			return nil, err
		}
		switch env.Type {
		case TypeWelcome:
			return Welcome{PeerID: p.PeerID}, nil
		case TypePeerJoined:
			return PeerJoined{PeerID: p.PeerID}, nil
		}
		return PeerLeft{PeerID: p.PeerID}, nil
	case TypeJoinRoom:
		var p joinWire
		if err := unmarshal(data, &p); err != nil {
			return nil, err
		}
		return JoinRoom{RoomID: p.RoomID}, nil
	case TypeJoinRoomAck:
		var p ackWire
		if err := unmarshal(data, &p); err != nil {
			return nil, err
		}
		return JoinRoomAck{Success: p.Success, Peers: p.Peers, Error: p.Error}, nil
	case TypeOffer, TypeAnswer:
		var p sdpWire
		if err := unmarshal(data, &p); err != nil {
			return nil, err
		}
		if env.Type == TypeOffer {
			return Offer{SDP: p.SDP, RoomID: p.RoomID, TargetID: p.TargetID, SenderID: p.SenderID}, nil
		}
		return Answer{SDP: p.SDP, RoomID: p.RoomID, TargetID: p.TargetID, SenderID: p.SenderID}, nil
	case TypeIceCandidate:
		var p candidateWire
		if err := unmarshal(data, &p); err != nil {
			return nil, err
		}
		return IceCandidate{Candidate: p.Candidate, RoomID: p.RoomID, TargetID: p.TargetID, SenderID: p.SenderID}, nil
	}
	return nil, fmt.Errorf("%w: %q", core.ErrUnknownType, env.Type)
}

func unmarshal(data []byte, v any) error {
	if err := sonic.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", core.ErrMalformedFrame, err)
	}
	return nil
}
