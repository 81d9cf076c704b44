package proto

import (
	"errors"
	"strings"
	"testing"

	"github.com/dkeye/Captions/internal/core"
	"github.com/pion/webrtc/v4"
)

func TestDecodeClientFrames(t *testing.T) {
	offer, err := Decode([]byte(`{"type":"offer","sdp":{"type":"offer","sdp":"v=0"},"targetId":"A","roomId":"r1"}`))
	if err != nil {
		t.Fatalf("decode offer: %v", err)
	}
	o, ok := offer.(Offer)
	if !ok {
		t.Fatalf("decoded %T, want Offer", offer)
	}
	if o.TargetID != "A" || o.RoomID != "r1" || o.SDP == nil || o.SDP.Type != webrtc.SDPTypeOffer || o.SDP.SDP != "v=0" {
		t.Errorf("unexpected offer %+v", o)
	}

	cand, err := Decode([]byte(`{"type":"ice-candidate","candidate":{"candidate":"candidate:1 1 udp 1 10.0.0.1 5000 typ host","sdpMid":"0"},"roomId":"r1"}`))
	if err != nil {
		t.Fatalf("decode candidate: %v", err)
	}
	c := cand.(IceCandidate)
	if c.TargetID != "" || c.Candidate == nil || c.Candidate.SDPMid == nil || *c.Candidate.SDPMid != "0" {
		t.Errorf("unexpected candidate %+v", c)
	}

	join, err := Decode([]byte(`{"type":"join-room","roomId":"r1"}`))
	if err != nil {
		t.Fatalf("decode join: %v", err)
	}
	if join.(JoinRoom).RoomID != "r1" {
		t.Errorf("unexpected join %+v", join)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		err  error
	}{
		{name: "not json", data: `{nope`, err: core.ErrMalformedFrame},
		{name: "unknown type", data: `{"type":"dance"}`, err: core.ErrUnknownType},
		{name: "missing type", data: `{}`, err: core.ErrUnknownType},
		{name: "bad sdp shape", data: `{"type":"answer","sdp":42}`, err: core.ErrMalformedFrame},
	}
	for _, tt := range tests {
		tt := tt // per-iteration copy (Go <1.22 loop semantics)
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.data)); !errors.Is(err, tt.err) {
				t.Errorf("Decode(%s) error = %v, want %v", tt.data, err, tt.err)
			}
		})
	}
}

func TestEncodeJoinAckAlwaysHasPeers(t *testing.T) {
	frame, err := Encode(JoinRoomAck{Success: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(frame), `"peers":[]`) {
		t.Errorf("ack frame %s lacks empty peers list", frame)
	}
	if strings.Contains(string(frame), `"error"`) {
		t.Errorf("ack frame %s carries an empty error", frame)
	}
}

func TestEncodeRelayedOfferOmitsRouting(t *testing.T) {
	frame, err := Encode(Offer{
		SDP:      &webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0"},
		SenderID: "B",
	})
	if err != nil {
		t.Fatal(err)
	}
	s := string(frame)
	if !strings.Contains(s, `"senderId":"B"`) {
		t.Errorf("frame %s lacks senderId", s)
	}
	if strings.Contains(s, "targetId") || strings.Contains(s, "roomId") {
		t.Errorf("frame %s leaks routing fields", s)
	}

	msg, err := Decode(frame)
	if err != nil {
		t.Fatal(err)
	}
	if got := msg.(Offer); got.SenderID != "B" || got.SDP.SDP != "v=0" {
		t.Errorf("decoded %+v", got)
	}
}
