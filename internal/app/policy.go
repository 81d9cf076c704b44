package app

import (
	"github.com/dkeye/Captions/internal/domain"
)

type BackpressureAction int

const (
	KickMember BackpressureAction = iota + 1
	DropFrame
)

// Policy decides what happens to a peer whose send buffer is full.
type Policy interface {
	OnBackPressure(room domain.RoomID, peer domain.PeerID) BackpressureAction
}

// SimplePolicy kicks slow consumers; their client reconnects and re-joins.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.RoomID, domain.PeerID) BackpressureAction {
	return KickMember
}

// DropPolicy keeps slow consumers and drops the frame they could not take.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(domain.RoomID, domain.PeerID) BackpressureAction {
	return DropFrame
}

// PolicyFor maps the slow_consumer config value to a Policy.
func PolicyFor(name string) Policy {
	if name == "drop" {
		return DropPolicy{}
	}
	return SimplePolicy{}
}
