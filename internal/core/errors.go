package core

import (
	"errors"
	"fmt"

	"github.com/dkeye/Captions/internal/domain"
)

var (
	ErrMissingRoomID    = errors.New("missing room id")
	ErrMissingTargetID  = errors.New("missing target id")
	ErrMissingPayload   = errors.New("missing payload")
	ErrUnknownType      = errors.New("unknown message type")
	ErrMalformedFrame   = errors.New("malformed frame")
	ErrMalformedCaption = errors.New("malformed caption")
	ErrUnexpectedSignal = errors.New("unexpected signal")
	ErrNoSession        = errors.New("no session")
)

// SignalingError is a malformed or unroutable message. It is logged and
// dropped; it never closes the connection it came from.
type SignalingError struct {
	Op   string
	Peer domain.PeerID
	Err  error
}

func (e *SignalingError) Error() string {
	if e.Peer != "" {
		return fmt.Sprintf("%s from %s: %v", e.Op, e.Peer, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SignalingError) Unwrap() error { return e.Err }

func NewSignalingError(op string, peer domain.PeerID, err error) *SignalingError {
	return &SignalingError{Op: op, Peer: peer, Err: err}
}

// NegotiationError terminates only the session toward Peer.
type NegotiationError struct {
	Op   string
	Peer domain.PeerID
	Err  error
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("negotiate with %s: %s: %v", e.Peer, e.Op, e.Err)
}

func (e *NegotiationError) Unwrap() error { return e.Err }

func NewNegotiationError(op string, peer domain.PeerID, err error) *NegotiationError {
	return &NegotiationError{Op: op, Peer: peer, Err: err}
}

// ChannelError reports an unusable caption payload. The channel stays open.
type ChannelError struct {
	Peer    domain.PeerID
	Err     error
	Details string
}

func (e *ChannelError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("channel %s: %v (%s)", e.Peer, e.Err, e.Details)
	}
	return fmt.Sprintf("channel %s: %v", e.Peer, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }
