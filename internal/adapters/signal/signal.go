package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Captions/internal/app"
	"github.com/dkeye/Captions/internal/core"
	"github.com/dkeye/Captions/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	defaultReadLimit  = 256 * 1024
	defaultPingPeriod = 54 * time.Second
	defaultSendBuffer = 32
	writeWait         = 10 * time.Second
)

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	SendBuffer int
}

// SignalWSController upgrades signaling requests and pumps frames between
// the websocket and the relay. Every connection gets a fresh peer id.
type SignalWSController struct {
	Relay *app.Relay
	opts  Options
}

func NewSignalWSController(relay *app.Relay, opts Options) *SignalWSController {
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = defaultReadLimit
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = defaultPingPeriod
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	return &SignalWSController{Relay: relay, opts: opts}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnectionClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	peer := domain.NewPeerID()
	log.Info().Str("module", "signal").Str("peer", string(peer)).Str("remote", c.Request.RemoteAddr).Msg("new WS connection")

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.opts.SendBuffer),
	}
	ctx, cancel := context.WithCancel(ctx)
	ctl.Relay.OnConnect(peer, conn)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, peer, conn)
}
