package app

import (
	"sync"

	"github.com/dkeye/Captions/internal/core"
	"github.com/dkeye/Captions/internal/proto"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	limit  int
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnectionClosed
	}
	if c.limit > 0 && len(c.frames) >= c.limit {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// messages decodes everything sent so far and resets the buffer.
func (c *fakeConn) messages() []proto.Message {
	c.mu.Lock()
	frames := c.frames
	c.frames = nil
	c.mu.Unlock()
	out := make([]proto.Message, 0, len(frames))
	for _, f := range frames {
		m, err := proto.Decode(f)
		if err != nil {
			panic(err)
		}
		out = append(out, m)
	}
	return out
}
