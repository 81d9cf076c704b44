package rtc

import (
	"github.com/dkeye/Captions/internal/core"
	"github.com/dkeye/Captions/internal/domain"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Options struct {
	ICEServers      []webrtc.ICEServer
	IncludeLoopback bool
	// PionLogLevel filters pion's own logs; they are noisy below warn.
	PionLogLevel zerolog.Level
}

// Factory builds peer connections from one shared pion API.
type Factory struct {
	api  *webrtc.API
	conf webrtc.Configuration
}

var _ core.ConnectionFactory = (*Factory)(nil)

func NewFactory(opts Options) (*Factory, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}
	i := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, i); err != nil {
		return nil, err
	}
	s := webrtc.SettingEngine{LoggerFactory: NewPionLogger(log.Logger, opts.PionLogLevel)}
	s.SetIncludeLoopbackCandidate(opts.IncludeLoopback)

	servers := opts.ICEServers
	if servers == nil {
		servers = []webrtc.ICEServer{}
	}
	return &Factory{
		api:  webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithInterceptorRegistry(i), webrtc.WithSettingEngine(s)),
		conf: webrtc.Configuration{ICEServers: servers},
	}, nil
}

// ICEServers builds the ICE server list from STUN URLs and an optional
// TURN server.
func ICEServers(stun []string, turn, user, pass string) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, 2)
	if len(stun) > 0 {
		out = append(out, webrtc.ICEServer{URLs: stun})
	}
	if turn != "" {
		out = append(out, webrtc.ICEServer{
			URLs:       []string{turn},
			Username:   user,
			Credential: pass,
		})
	}
	return out
}

func (f *Factory) NewConnection(remote domain.PeerID, h core.ConnectionHandlers) (core.MediaConnection, error) {
	pc, err := f.api.NewPeerConnection(f.conf)
	if err != nil {
		return nil, err
	}
	c := &WebRTCConnection{pc: pc, remote: remote}
	c.bind(h)
	return c, nil
}
