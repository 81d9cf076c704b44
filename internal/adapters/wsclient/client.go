// Package wsclient keeps a reconnecting signaling websocket to the relay.
package wsclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Captions/internal/core"
	"github.com/dkeye/Captions/internal/proto"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

var ErrNotConnected = errors.New("signaling not connected")

// Handler receives connection state and decoded relay messages. Calls come
// from the client's read goroutine.
type Handler interface {
	SignalConnected()
	SignalDisconnected()
	Deliver(proto.Message)
}

type Client struct {
	url     string
	handler Handler
	dialer  *websocket.Dialer
	retry   Retry

	mu  sync.Mutex
	out chan core.Frame
}

func New(url string, h Handler) *Client {
	return &Client{
		url:     url,
		handler: h,
		dialer:  websocket.DefaultDialer,
		retry:   NewRetry(retryMin, retryMax),
	}
}

// Send queues msg on the current connection without blocking.
func (c *Client) Send(msg proto.Message) error {
	frame, err := proto.Encode(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.out == nil {
		return ErrNotConnected
	}
	select {
	case c.out <- frame:
		return nil
	default:
		return core.ErrBackpressure
	}
}

// Run dials, serves and redials until ctx is done.
func (c *Client) Run(ctx context.Context) {
	for {
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Str("module", "wsclient").Str("url", c.url).Dur("retry", c.retry.Time()).Msg("dial failed")
			if !c.retry.Fail(ctx) {
				return
			}
			continue
		}
		c.retry.Success()
		log.Info().Str("module", "wsclient").Str("url", c.url).Msg("connected")
		c.serve(ctx, conn)
		c.handler.SignalDisconnected()
		if ctx.Err() != nil {
			return
		}
		log.Warn().Str("module", "wsclient").Msg("connection lost, reconnecting")
	}
}

func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	out := make(chan core.Frame, sendBuffer)
	stop := make(chan struct{})
	var wg sync.WaitGroup

	c.mu.Lock()
	c.out = out
	c.mu.Unlock()
	c.handler.SignalConnected()

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writePump(conn, out, stop)
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	c.readPump(conn)

	c.mu.Lock()
	c.out = nil
	c.mu.Unlock()
	close(stop)
	_ = conn.Close()
	wg.Wait()
}

func (c *Client) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "wsclient").Msg("read error")
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		msg, err := proto.Decode(data)
		if err != nil {
			log.Warn().Err(err).Str("module", "wsclient").Msg("undecodable frame dropped")
			continue
		}
		c.handler.Deliver(msg)
	}
}

func (c *Client) writePump(conn *websocket.Conn, out <-chan core.Frame, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case frame := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Warn().Err(err).Str("module", "wsclient").Msg("write error")
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}
