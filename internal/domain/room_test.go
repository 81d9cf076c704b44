package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestRoomIDValidate(t *testing.T) {
	tests := []struct {
		name string
		id   RoomID
		err  error
	}{
		{name: "empty", id: "", err: ErrRoomIDEmpty},
		{name: "ok", id: "r1"},
		{name: "max", id: RoomID(strings.Repeat("a", MaxRoomIDLen))},
		{name: "too long", id: RoomID(strings.Repeat("a", MaxRoomIDLen+1)), err: ErrRoomIDTooLong},
	}
	for _, tt := range tests {
		tt := tt // per-iteration copy (Go <1.22 loop semantics)
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.id.Validate(); !errors.Is(err, tt.err) {
				t.Errorf("Validate(%q) = %v, want %v", tt.id, err, tt.err)
			}
		})
	}
}

func TestNewPeerIDUnique(t *testing.T) {
	seen := make(map[PeerID]struct{})
	for i := 0; i < 1000; i++ {
		id := NewPeerID()
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate peer id %v", id)
		}
		seen[id] = struct{}{}
	}
}
