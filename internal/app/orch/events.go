package orch

import (
	"github.com/dkeye/Captions/internal/core"
	"github.com/dkeye/Captions/internal/domain"
	"github.com/dkeye/Captions/internal/proto"
	"github.com/pion/webrtc/v4"
)

// event is everything the loop reacts to. Events raised by a session carry
// its generation; the loop ignores those whose session is gone or replaced.
type event interface{ isEvent() }

type (
	evSignalUp   struct{}
	evSignalDown struct{}
	evMessage    struct{ msg proto.Message }
	evMediaReady struct {
		tracks []webrtc.TrackLocal
	}
	evMediaUnavailable struct{}
	evQuery            struct{ reply chan []SessionInfo }

	// evDescription is the local offer or answer produced by the worker.
	evDescription struct {
		peer domain.PeerID
		gen  uint64
		sdp  webrtc.SessionDescription
		err  error
	}
	// evFailed is a worker step that failed after the local description.
	evFailed struct {
		peer  domain.PeerID
		gen   uint64
		err   error
		fatal bool
	}
	evLocalCandidate struct {
		peer domain.PeerID
		gen  uint64
		cand webrtc.ICECandidateInit
	}
	evICEState struct {
		peer  domain.PeerID
		gen   uint64
		state webrtc.ICEConnectionState
	}
	evTrack struct {
		peer domain.PeerID
		gen  uint64
		kind webrtc.RTPCodecType
	}
	evChannelOpen struct {
		peer domain.PeerID
		gen  uint64
		dc   core.DataChannel
	}
	evChannelClosed struct {
		peer domain.PeerID
		gen  uint64
		dc   core.DataChannel
	}
	evTimeout struct {
		peer domain.PeerID
		gen  uint64
	}
)

func (evSignalUp) isEvent()         {}
func (evSignalDown) isEvent()       {}
func (evMessage) isEvent()          {}
func (evMediaReady) isEvent()       {}
func (evMediaUnavailable) isEvent() {}
func (evQuery) isEvent()            {}
func (evDescription) isEvent()      {}
func (evFailed) isEvent()           {}
func (evLocalCandidate) isEvent()   {}
func (evICEState) isEvent()         {}
func (evTrack) isEvent()            {}
func (evChannelOpen) isEvent()      {}
func (evChannelClosed) isEvent()    {}
func (evTimeout) isEvent()          {}
