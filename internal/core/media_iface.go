package core

import (
	"github.com/dkeye/Captions/internal/domain"
	"github.com/pion/webrtc/v4"
)

// DataChannel is the subset of *webrtc.DataChannel the client relies on.
type DataChannel interface {
	Label() string
	ReadyState() webrtc.DataChannelState
	SendText(s string) error
	OnOpen(func())
	OnClose(func())
	OnMessage(func(webrtc.DataChannelMessage))
	Close() error
}

// ConnectionHandlers are bound when a MediaConnection is created so no
// callback can fire before it is installed.
type ConnectionHandlers struct {
	// OnICECandidate receives newly gathered local candidates.
	OnICECandidate func(webrtc.ICECandidateInit)
	OnICEState     func(webrtc.ICEConnectionState)
	// OnTrack fires once per inbound media track.
	OnTrack func(kind webrtc.RTPCodecType)
	// OnDataChannel fires for channels opened by the remote side.
	OnDataChannel func(DataChannel)
}

// MediaConnection wraps one local<->remote peer connection.
// Every method except Close may block on the underlying stack and must
// not be called from the orchestrator's event loop.
type MediaConnection interface {
	// CreateOffer creates an offer and applies it as the local description.
	CreateOffer() (webrtc.SessionDescription, error)
	// ApplyOffer applies a remote offer and returns the local answer.
	ApplyOffer(webrtc.SessionDescription) (webrtc.SessionDescription, error)
	ApplyAnswer(webrtc.SessionDescription) error
	AddICECandidate(webrtc.ICECandidateInit) error
	CreateDataChannel(label string) (DataChannel, error)
	AddLocalTrack(webrtc.TrackLocal) error
	Close() error
}

// ConnectionFactory creates a MediaConnection toward one remote peer.
type ConnectionFactory interface {
	NewConnection(remote domain.PeerID, h ConnectionHandlers) (MediaConnection, error)
}
