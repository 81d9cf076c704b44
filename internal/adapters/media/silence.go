// Package media provides the local audio source of a headless client.
package media

import (
	"context"
	"time"

	"github.com/pion/webrtc/v4"
	pmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"
)

const frameDuration = 20 * time.Millisecond

// silenceFrame is an Opus packet carrying 20ms of silence.
var silenceFrame = []byte{0xf8, 0xff, 0xfe}

// Silence is an Opus track that streams silence. It gives peers an inbound
// track when the client has no microphone.
type Silence struct {
	track *webrtc.TrackLocalStaticSample
}

func NewSilence(streamID string) (*Silence, error) {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio", streamID,
	)
	if err != nil {
		return nil, err
	}
	return &Silence{track: track}, nil
}

func (s *Silence) Track() webrtc.TrackLocal { return s.track }

// Run writes a silent frame every 20ms until ctx is done.
func (s *Silence) Run(ctx context.Context) {
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.track.WriteSample(pmedia.Sample{Data: silenceFrame, Duration: frameDuration}); err != nil {
				log.Debug().Err(err).Str("module", "media").Msg("write silence")
			}
		}
	}
}
