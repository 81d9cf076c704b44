package core

import "errors"

// Frame is one encoded signaling message.
type Frame []byte

var (
	ErrBackpressure     = errors.New("backpressure")
	ErrConnectionClosed = errors.New("connection closed")
)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend never blocks: it returns ErrBackpressure when the outbound
	// buffer is full and ErrConnectionClosed after Close.
	TrySend(Frame) error
	Close()
}
