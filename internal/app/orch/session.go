package orch

import (
	"sync"
	"time"

	"github.com/dkeye/Captions/internal/core"
	"github.com/dkeye/Captions/internal/domain"
	"github.com/pion/webrtc/v4"
)

// SessionInfo is a read-only view of one session.
type SessionInfo struct {
	Remote         domain.PeerID
	Role           core.Role
	State          core.SessionState
	HasDataChannel bool
}

// Session is the client's negotiation state toward one remote peer. It is
// owned by the orchestrator loop; only the worker touches conn.
type Session struct {
	Remote domain.PeerID
	Role   core.Role
	State  core.SessionState

	gen    uint64
	conn   core.MediaConnection
	worker *worker
	timer  *time.Timer

	// remoteSet is true once the remote description is queued on the
	// worker; candidates before that wait in pending.
	remoteSet bool
	pending   []webrtc.ICECandidateInit
	// sdpSent gates outgoing candidates so the remote sees the SDP first.
	sdpSent      bool
	localPending []webrtc.ICECandidateInit

	iceUp       bool
	tracks      int
	channel     core.DataChannel
	channelOpen bool
}

func (s *Session) Info() SessionInfo {
	return SessionInfo{
		Remote:         s.Remote,
		Role:           s.Role,
		State:          s.State,
		HasDataChannel: s.channelOpen,
	}
}

func (s *Session) ready() bool {
	return s.State == core.SessionNegotiating && s.iceUp && s.tracks > 0
}

// worker runs jobs for one session in order on its own goroutine, so
// blocking pion calls never stall the orchestrator loop.
type worker struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool
	notify  chan struct{}
}

func newWorker() *worker {
	w := &worker{notify: make(chan struct{}, 1)}
	go w.run()
	return w
}

// do enqueues fn. Jobs after stop are discarded.
func (w *worker) do(fn func()) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.queue = append(w.queue, fn)
	w.mu.Unlock()
	w.wake()
}

// stop enqueues a final job and lets the goroutine exit once the queue
// has drained.
func (w *worker) stop(final func()) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	if final != nil {
		w.queue = append(w.queue, final)
	}
	w.stopped = true
	w.mu.Unlock()
	w.wake()
}

func (w *worker) wake() {
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

func (w *worker) run() {
	for range w.notify {
		for {
			w.mu.Lock()
			if len(w.queue) == 0 {
				stopped := w.stopped
				w.mu.Unlock()
				if stopped {
					return
				}
				break
			}
			fn := w.queue[0]
			w.queue[0] = nil
			w.queue = w.queue[1:]
			w.mu.Unlock()
			fn()
		}
	}
}
