package core

// SessionState is the lifecycle of one peer session.
type SessionState int

const (
	SessionNew SessionState = iota
	SessionNegotiating
	SessionConnected
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionNew:
		return "new"
	case SessionNegotiating:
		return "negotiating"
	case SessionConnected:
		return "connected"
	case SessionClosed:
		return "closed"
	}
	return "unknown"
}

type Role int

const (
	RoleInitiator Role = iota
	RoleResponder
)

func (r Role) String() string {
	if r == RoleInitiator {
		return "initiator"
	}
	return "responder"
}

// CloseReason is the reason code attached to a session-closed event.
type CloseReason string

const (
	ReasonNone              CloseReason = ""
	ReasonPeerLeft          CloseReason = "peer_left"
	ReasonSignalLost        CloseReason = "signal_lost"
	ReasonICEFailed         CloseReason = "ice_failed"
	ReasonNegotiationFailed CloseReason = "negotiation_failed"
	ReasonTimeout           CloseReason = "timeout"
	ReasonShutdown          CloseReason = "shutdown"
)

// JoinState tracks one room-membership attempt.
type JoinState int

const (
	JoinIdle JoinState = iota
	JoinJoining
	JoinJoined
)

func (s JoinState) String() string {
	switch s {
	case JoinIdle:
		return "idle"
	case JoinJoining:
		return "joining"
	case JoinJoined:
		return "joined"
	}
	return "unknown"
}
