package rtc

import (
	"github.com/dkeye/Captions/internal/core"
	"github.com/dkeye/Captions/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// WebRTCConnection adapts a pion PeerConnection to core.MediaConnection.
// Candidates trickle through OnICECandidate; descriptions are returned
// without waiting for gathering to finish.
type WebRTCConnection struct {
	pc     *webrtc.PeerConnection
	remote domain.PeerID
}

var _ core.MediaConnection = (*WebRTCConnection)(nil)

func (c *WebRTCConnection) bind(h core.ConnectionHandlers) {
	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil && h.OnICECandidate != nil {
			h.OnICECandidate(cand.ToJSON())
		}
	})

	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "webrtc").Str("peer", string(c.remote)).Str("ice_state", s.String()).Msg("ICE state")
		if h.OnICEState != nil {
			h.OnICEState(s)
		}
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "webrtc").
			Str("peer", string(c.remote)).
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")
		go drain(track)
		if h.OnTrack != nil {
			h.OnTrack(track.Kind())
		}
	})

	c.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		log.Info().Str("module", "webrtc").Str("peer", string(c.remote)).Str("label", dc.Label()).Msg("remote data channel")
		if h.OnDataChannel != nil {
			h.OnDataChannel(dc)
		}
	})
}

// drain consumes inbound RTP so the receive buffers never fill; audio
// playback is outside this client.
func drain(track *webrtc.TrackRemote) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := track.Read(buf); err != nil {
			return
		}
	}
}

func (c *WebRTCConnection) CreateOffer() (webrtc.SessionDescription, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	return offer, nil
}

func (c *WebRTCConnection) ApplyOffer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if err := c.pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	return answer, nil
}

func (c *WebRTCConnection) ApplyAnswer(answer webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(answer)
}

func (c *WebRTCConnection) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(ci)
}

func (c *WebRTCConnection) CreateDataChannel(label string) (core.DataChannel, error) {
	dc, err := c.pc.CreateDataChannel(label, nil)
	if err != nil {
		return nil, err
	}
	return dc, nil
}

// AddLocalTrack attaches a local track and reads its RTCP until the
// connection closes.
func (c *WebRTCConnection) AddLocalTrack(track webrtc.TrackLocal) error {
	sender, err := c.pc.AddTrack(track)
	if err != nil {
		return err
	}
	go func() {
		rtcpBuf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(rtcpBuf); err != nil {
				return
			}
		}
	}()
	return nil
}

func (c *WebRTCConnection) Close() error {
	if err := c.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "webrtc").Str("peer", string(c.remote)).Msg("close error")
		return err
	}
	log.Info().Str("module", "webrtc").Str("peer", string(c.remote)).Msg("closed")
	return nil
}
