package orch

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Captions/internal/core"
	"github.com/dkeye/Captions/internal/domain"
	"github.com/dkeye/Captions/internal/proto"
	"github.com/pion/webrtc/v4"
)

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type fakeSignaler struct {
	mu   sync.Mutex
	sent []proto.Message
	err  error
}

func (s *fakeSignaler) Send(m proto.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, m)
	return nil
}

func (s *fakeSignaler) messages() []proto.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]proto.Message(nil), s.sent...)
}

func (s *fakeSignaler) count(t proto.Type) int {
	n := 0
	for _, m := range s.messages() {
		if m.Type() == t {
			n++
		}
	}
	return n
}

type fakeChannel struct {
	label string

	mu      sync.Mutex
	onOpen  func()
	onClose func()
	onMsg   func(webrtc.DataChannelMessage)
}

func (c *fakeChannel) Label() string                       { return c.label }
func (c *fakeChannel) ReadyState() webrtc.DataChannelState { return webrtc.DataChannelStateConnecting }
func (c *fakeChannel) SendText(string) error               { return nil }
func (c *fakeChannel) Close() error                        { return nil }

func (c *fakeChannel) OnOpen(f func())  { c.mu.Lock(); c.onOpen = f; c.mu.Unlock() }
func (c *fakeChannel) OnClose(f func()) { c.mu.Lock(); c.onClose = f; c.mu.Unlock() }
func (c *fakeChannel) OnMessage(f func(webrtc.DataChannelMessage)) {
	c.mu.Lock()
	c.onMsg = f
	c.mu.Unlock()
}

func (c *fakeChannel) open() {
	c.mu.Lock()
	f := c.onOpen
	c.mu.Unlock()
	f()
}

func (c *fakeChannel) close() {
	c.mu.Lock()
	f := c.onClose
	c.mu.Unlock()
	f()
}

func (c *fakeChannel) receive(data string) {
	c.mu.Lock()
	f := c.onMsg
	c.mu.Unlock()
	f(webrtc.DataChannelMessage{IsString: true, Data: []byte(data)})
}

// fakeConn records the order of calls made on it. When gate is set,
// CreateOffer blocks until it is closed.
type fakeConn struct {
	remote   domain.PeerID
	handlers core.ConnectionHandlers
	gate     chan struct{}
	failOn   string

	mu      sync.Mutex
	calls   []string
	channel *fakeChannel
	closed  bool
}

func (c *fakeConn) record(call string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
	if c.failOn == call {
		return errors.New(call + " failed")
	}
	return nil
}

func (c *fakeConn) log() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) dataChannel() *fakeChannel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

func (c *fakeConn) CreateOffer() (webrtc.SessionDescription, error) {
	if c.gate != nil {
		<-c.gate
	}
	err := c.record("create-offer")
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "offer-to-" + string(c.remote)}, err
}

func (c *fakeConn) ApplyOffer(sd webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	err := c.record("apply-offer:" + sd.SDP)
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "answer-to-" + string(c.remote)}, err
}

func (c *fakeConn) ApplyAnswer(sd webrtc.SessionDescription) error {
	return c.record("apply-answer:" + sd.SDP)
}

func (c *fakeConn) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return c.record("candidate:" + ci.Candidate)
}

func (c *fakeConn) CreateDataChannel(label string) (core.DataChannel, error) {
	if err := c.record("data-channel:" + label); err != nil {
		return nil, err
	}
	dc := &fakeChannel{label: label}
	c.mu.Lock()
	c.channel = dc
	c.mu.Unlock()
	return dc, nil
}

func (c *fakeConn) AddLocalTrack(webrtc.TrackLocal) error { return c.record("add-track") }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type fakeFactory struct {
	mu     sync.Mutex
	conns  map[domain.PeerID]*fakeConn
	gate   chan struct{}
	failOn string
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{conns: make(map[domain.PeerID]*fakeConn)}
}

func (f *fakeFactory) NewConnection(remote domain.PeerID, h core.ConnectionHandlers) (core.MediaConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &fakeConn{remote: remote, handlers: h, gate: f.gate, failOn: f.failOn}
	f.conns[remote] = c
	return c, nil
}

func (f *fakeFactory) conn(remote domain.PeerID) *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns[remote]
}

type stateChange struct {
	peer   domain.PeerID
	state  core.SessionState
	reason core.CloseReason
}

type recordingObserver struct {
	mu     sync.Mutex
	joins  []core.JoinState
	states []stateChange
}

func (r *recordingObserver) JoinStateChanged(s core.JoinState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joins = append(r.joins, s)
}

func (r *recordingObserver) SessionStateChanged(p domain.PeerID, s core.SessionState, reason core.CloseReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, stateChange{peer: p, state: s, reason: reason})
}

func (r *recordingObserver) closedWith(peer domain.PeerID) (core.CloseReason, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.states {
		if c.peer == peer && c.state == core.SessionClosed {
			return c.reason, true
		}
	}
	return "", false
}

func (r *recordingObserver) lastJoin() core.JoinState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.joins) == 0 {
		return core.JoinIdle
	}
	return r.joins[len(r.joins)-1]
}
