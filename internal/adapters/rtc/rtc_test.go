package rtc

import (
	"strings"
	"testing"

	"github.com/dkeye/Captions/internal/adapters/media"
	"github.com/dkeye/Captions/internal/core"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

func TestICEServers(t *testing.T) {
	got := ICEServers([]string{"stun:a:3478"}, "turn:b:3478", "u", "p")
	if len(got) != 2 || got[0].URLs[0] != "stun:a:3478" || got[1].Username != "u" {
		t.Errorf("servers %+v", got)
	}
	if got := ICEServers(nil, "", "", ""); len(got) != 0 {
		t.Errorf("servers %+v, want none", got)
	}
}

func TestOfferAnswerExchange(t *testing.T) {
	f, err := NewFactory(Options{IncludeLoopback: true, PionLogLevel: zerolog.Disabled})
	if err != nil {
		t.Fatal(err)
	}

	offerer, err := f.NewConnection("B", core.ConnectionHandlers{})
	if err != nil {
		t.Fatal(err)
	}
	defer offerer.Close()
	answerer, err := f.NewConnection("A", core.ConnectionHandlers{})
	if err != nil {
		t.Fatal(err)
	}
	defer answerer.Close()

	for _, c := range []core.MediaConnection{offerer, answerer} {
		src, err := media.NewSilence("test")
		if err != nil {
			t.Fatal(err)
		}
		if err := c.AddLocalTrack(src.Track()); err != nil {
			t.Fatal(err)
		}
	}
	dc, err := offerer.CreateDataChannel("subtitles")
	if err != nil {
		t.Fatal(err)
	}
	if dc.Label() != "subtitles" {
		t.Errorf("label %q", dc.Label())
	}

	offer, err := offerer.CreateOffer()
	if err != nil {
		t.Fatal(err)
	}
	if offer.Type != webrtc.SDPTypeOffer || !strings.Contains(offer.SDP, "m=audio") || !strings.Contains(offer.SDP, "m=application") {
		t.Fatalf("offer lacks audio or data section:\n%s", offer.SDP)
	}

	answer, err := answerer.ApplyOffer(offer)
	if err != nil {
		t.Fatal(err)
	}
	if answer.Type != webrtc.SDPTypeAnswer || !strings.Contains(answer.SDP, "opus") {
		t.Fatalf("unexpected answer:\n%s", answer.SDP)
	}
	if err := offerer.ApplyAnswer(answer); err != nil {
		t.Fatal(err)
	}
	if err := offerer.ApplyAnswer(answer); err == nil {
		t.Error("second answer accepted in stable state")
	}
}
