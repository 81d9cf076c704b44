package app

import (
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Captions/internal/core"
	"github.com/dkeye/Captions/internal/domain"
	"github.com/dkeye/Captions/internal/proto"
)

type relayFixture struct {
	relay *Relay
	conns map[domain.PeerID]*fakeConn
}

func newRelayFixture(t *testing.T, policy Policy, peers ...domain.PeerID) *relayFixture {
	t.Helper()
	rooms := NewRoomManager()
	reg := NewRegistry()
	f := &relayFixture{
		relay: NewRelay(rooms, reg, policy, nil, NewMetrics(rooms, reg)),
		conns: make(map[domain.PeerID]*fakeConn),
	}
	for _, p := range peers {
		c := &fakeConn{}
		f.conns[p] = c
		f.relay.OnConnect(p, c)
		msgs := c.messages()
		if len(msgs) != 1 || msgs[0].(proto.Welcome).PeerID != p {
			t.Fatalf("welcome for %s: %+v", p, msgs)
		}
	}
	return f
}

func (f *relayFixture) send(from domain.PeerID, frame string) {
	f.relay.OnFrame(from, []byte(frame))
}

func (f *relayFixture) join(t *testing.T, peer domain.PeerID, room domain.RoomID) proto.JoinRoomAck {
	t.Helper()
	if err := f.relay.Handle(peer, proto.JoinRoom{RoomID: room}); err != nil {
		t.Fatalf("join: %v", err)
	}
	msgs := f.conns[peer].messages()
	if len(msgs) != 1 {
		t.Fatalf("%s got %d messages after join, want 1 ack", peer, len(msgs))
	}
	ack, ok := msgs[0].(proto.JoinRoomAck)
	if !ok {
		t.Fatalf("%s got %T, want ack", peer, msgs[0])
	}
	return ack
}

func TestRelayJoinAndOfferAnswer(t *testing.T) {
	f := newRelayFixture(t, nil, "A", "B")

	if ack := f.join(t, "A", "r1"); !ack.Success || len(ack.Peers) != 0 {
		t.Errorf("A ack %+v", ack)
	}
	if ack := f.join(t, "B", "r1"); !ack.Success || len(ack.Peers) != 1 || ack.Peers[0] != "A" {
		t.Errorf("B ack %+v", ack)
	}
	msgs := f.conns["A"].messages()
	if len(msgs) != 1 || msgs[0].(proto.PeerJoined).PeerID != "B" {
		t.Fatalf("A got %+v, want peer-joined B", msgs)
	}

	f.send("B", `{"type":"offer","sdp":{"type":"offer","sdp":"o"},"targetId":"A","roomId":"r1"}`)
	msgs = f.conns["A"].messages()
	if len(msgs) != 1 {
		t.Fatalf("A got %d messages, want offer", len(msgs))
	}
	o := msgs[0].(proto.Offer)
	if o.SenderID != "B" || o.SDP.SDP != "o" || o.TargetID != "" {
		t.Errorf("relayed offer %+v", o)
	}

	f.send("A", `{"type":"answer","sdp":{"type":"answer","sdp":"a"},"targetId":"B","roomId":"r1"}`)
	msgs = f.conns["B"].messages()
	if len(msgs) != 1 || msgs[0].(proto.Answer).SenderID != "A" {
		t.Errorf("B got %+v, want answer from A", msgs)
	}
}

func TestRelayDropsMalformed(t *testing.T) {
	f := newRelayFixture(t, nil, "A", "B")
	f.join(t, "A", "r1")
	f.join(t, "B", "r1")
	f.conns["A"].messages()

	frames := []string{
		`{"type":"offer","sdp":{"type":"offer","sdp":"o"},"targetId":"A"}`,
		`{"type":"answer","sdp":{"type":"answer","sdp":"a"},"roomId":"r1"}`,
		`{"type":"ice-candidate","candidate":{"candidate":"c"}}`,
		`{"type":"peer-left","peerId":"A"}`,
		`{"type":"shout"}`,
		`not json`,
	}
	for _, fr := range frames {
		f.send("B", fr)
	}
	for id, c := range f.conns {
		if msgs := c.messages(); len(msgs) != 0 {
			t.Errorf("%s received %+v", id, msgs)
		}
		if c.isClosed() {
			t.Errorf("%s was closed", id)
		}
	}
}

func TestRelayTargetedAndBroadcast(t *testing.T) {
	f := newRelayFixture(t, nil, "A", "B", "C", "X")
	for _, p := range []domain.PeerID{"A", "B", "C"} {
		f.join(t, p, "r1")
	}
	f.join(t, "X", "r2")
	for _, c := range f.conns {
		c.messages()
	}

	f.send("A", `{"type":"ice-candidate","candidate":{"candidate":"c1"},"targetId":"B","roomId":"r1"}`)
	if n := len(f.conns["B"].messages()); n != 1 {
		t.Errorf("B got %d, want 1", n)
	}
	if n := len(f.conns["C"].messages()); n != 0 {
		t.Errorf("C got %d targeted messages", n)
	}

	f.send("A", `{"type":"ice-candidate","candidate":{"candidate":"c2"},"roomId":"r1"}`)
	for _, p := range []domain.PeerID{"B", "C"} {
		msgs := f.conns[p].messages()
		if len(msgs) != 1 || msgs[0].(proto.IceCandidate).SenderID != "A" {
			t.Errorf("%s got %+v", p, msgs)
		}
	}
	for _, p := range []domain.PeerID{"A", "X"} {
		if n := len(f.conns[p].messages()); n != 0 {
			t.Errorf("%s got %d broadcast messages", p, n)
		}
	}

	f.send("A", `{"type":"offer","sdp":{"type":"offer","sdp":"o"},"targetId":"ghost","roomId":"r1"}`)
	for id, c := range f.conns {
		if n := len(c.messages()); n != 0 {
			t.Errorf("%s got %d messages for unknown target", id, n)
		}
	}
}

func TestRelayDisconnectNotifiesOnce(t *testing.T) {
	f := newRelayFixture(t, nil, "A", "B", "C")
	for _, p := range []domain.PeerID{"A", "B", "C"} {
		f.join(t, p, "r1")
	}
	for _, c := range f.conns {
		c.messages()
	}

	f.relay.OnDisconnect("B")
	f.relay.OnDisconnect("B")

	for _, p := range []domain.PeerID{"A", "C"} {
		msgs := f.conns[p].messages()
		if len(msgs) != 1 || msgs[0].(proto.PeerLeft).PeerID != "B" {
			t.Errorf("%s got %+v, want one peer-left B", p, msgs)
		}
	}
	for _, m := range f.relay.Rooms.MembersOf("r1") {
		if m == "B" {
			t.Error("B still a member")
		}
	}
}

func TestRelaySwitchRoomLeavesOld(t *testing.T) {
	f := newRelayFixture(t, nil, "A", "B", "C")
	f.join(t, "A", "r1")
	f.join(t, "B", "r1")
	f.join(t, "C", "r2")
	for _, c := range f.conns {
		c.messages()
	}

	if err := f.relay.Handle("B", proto.JoinRoom{RoomID: "r2"}); err != nil {
		t.Fatal(err)
	}
	if msgs := f.conns["A"].messages(); len(msgs) != 1 || msgs[0].(proto.PeerLeft).PeerID != "B" {
		t.Errorf("A got %+v, want peer-left B", msgs)
	}
	if msgs := f.conns["C"].messages(); len(msgs) != 1 || msgs[0].(proto.PeerJoined).PeerID != "B" {
		t.Errorf("C got %+v, want peer-joined B", msgs)
	}
}

func TestRelayRejoinSameRoomIsQuiet(t *testing.T) {
	f := newRelayFixture(t, nil, "A", "B")
	f.join(t, "A", "r1")
	f.join(t, "B", "r1")
	f.conns["A"].messages()

	if ack := f.join(t, "B", "r1"); !ack.Success || len(ack.Peers) != 1 {
		t.Errorf("rejoin ack %+v", ack)
	}
	if msgs := f.conns["A"].messages(); len(msgs) != 0 {
		t.Errorf("A got %+v on rejoin", msgs)
	}
}

func TestRelayInvalidRoom(t *testing.T) {
	f := newRelayFixture(t, nil, "A")
	ack := f.join(t, "A", "")
	if ack.Success || ack.Error == "" {
		t.Errorf("ack %+v, want failure", ack)
	}
	if _, ok := f.relay.Rooms.RoomOf("A"); ok {
		t.Error("A joined an invalid room")
	}
}

func TestRelayBackpressurePolicy(t *testing.T) {
	tests := []struct {
		name       string
		policy     Policy
		wantClosed bool
	}{
		{name: "kick", policy: SimplePolicy{}, wantClosed: true},
		{name: "drop", policy: DropPolicy{}, wantClosed: false},
	}
	for _, tt := range tests {
		tt := tt // per-iteration copy (Go <1.22 loop semantics)
		t.Run(tt.name, func(t *testing.T) {
			f := newRelayFixture(t, tt.policy, "A", "B")
			f.join(t, "A", "r1")
			f.join(t, "B", "r1")
			f.conns["A"].messages()
			f.conns["A"].limit = 1

			for i := 0; i < 3; i++ {
				f.send("B", `{"type":"ice-candidate","candidate":{"candidate":"c"},"roomId":"r1"}`)
			}
			if got := f.conns["A"].isClosed(); got != tt.wantClosed {
				t.Errorf("closed = %v, want %v", got, tt.wantClosed)
			}
			if f.conns["B"].isClosed() {
				t.Error("sender closed")
			}
		})
	}
}

func TestRelayRateLimitedJoin(t *testing.T) {
	rooms := NewRoomManager()
	reg := NewRegistry()
	relay := NewRelay(rooms, reg, nil, NewRoomRateLimiter(1, time.Minute), nil)
	c := &fakeConn{}
	relay.OnConnect("A", c)
	c.messages()

	_ = relay.Handle("A", proto.JoinRoom{RoomID: "r1"})
	_ = relay.Handle("A", proto.JoinRoom{RoomID: "r2"})
	msgs := c.messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages", len(msgs))
	}
	if ack := msgs[1].(proto.JoinRoomAck); ack.Success || ack.Error != DropRateLimited {
		t.Errorf("second ack %+v", ack)
	}
	if room, _ := rooms.RoomOf("A"); room != "r1" {
		t.Errorf("A in %q, want r1", room)
	}
}

// hookedRooms runs afterJoin once the wrapped Join has returned, standing in
// for another read pump that gets scheduled right then.
type hookedRooms struct {
	core.RoomRegistry
	afterJoin func()
}

func (h *hookedRooms) Join(room domain.RoomID, peer domain.PeerID, onJoined func([]domain.PeerID)) []domain.PeerID {
	others := h.RoomRegistry.Join(room, peer, onJoined)
	if h.afterJoin != nil {
		h.afterJoin()
	}
	return others
}

func TestRelayAckPrecedesPeerLeftOfListedMember(t *testing.T) {
	rooms := &hookedRooms{RoomRegistry: NewRoomManager()}
	reg := NewRegistry()
	relay := NewRelay(rooms, reg, nil, nil, nil)
	a, b := &fakeConn{}, &fakeConn{}
	relay.OnConnect("A", a)
	relay.OnConnect("B", b)
	if err := relay.Handle("A", proto.JoinRoom{RoomID: "r1"}); err != nil {
		t.Fatal(err)
	}
	b.messages()

	rooms.afterJoin = func() { relay.OnDisconnect("A") }
	if err := relay.Handle("B", proto.JoinRoom{RoomID: "r1"}); err != nil {
		t.Fatal(err)
	}

	msgs := b.messages()
	if len(msgs) != 2 {
		t.Fatalf("B got %+v, want ack then peer-left", msgs)
	}
	ack, ok := msgs[0].(proto.JoinRoomAck)
	if !ok || len(ack.Peers) != 1 || ack.Peers[0] != "A" {
		t.Fatalf("B first message %+v, want ack listing A", msgs[0])
	}
	if left, ok := msgs[1].(proto.PeerLeft); !ok || left.PeerID != "A" {
		t.Errorf("B second message %+v, want peer-left A", msgs[1])
	}
}

func TestRelayConcurrentJoinAndDisconnect(t *testing.T) {
	for i := 0; i < 200; i++ {
		rooms := NewRoomManager()
		reg := NewRegistry()
		relay := NewRelay(rooms, reg, nil, nil, nil)
		a, b := &fakeConn{}, &fakeConn{}
		relay.OnConnect("A", a)
		relay.OnConnect("B", b)
		if err := relay.Handle("A", proto.JoinRoom{RoomID: "r1"}); err != nil {
			t.Fatal(err)
		}
		b.messages()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = relay.Handle("B", proto.JoinRoom{RoomID: "r1"})
		}()
		go func() {
			defer wg.Done()
			relay.OnDisconnect("A")
		}()
		wg.Wait()

		var listed, acked, left bool
		for _, m := range b.messages() {
			switch v := m.(type) {
			case proto.JoinRoomAck:
				acked = true
				listed = len(v.Peers) == 1 && v.Peers[0] == "A"
			case proto.PeerLeft:
				if v.PeerID != "A" {
					continue
				}
				if !acked {
					t.Fatalf("round %d: peer-left A reached B before its ack", i)
				}
				left = true
			}
		}
		if !acked {
			t.Fatalf("round %d: B got no ack", i)
		}
		if listed != left {
			t.Fatalf("round %d: ack listed A=%v but peer-left A=%v", i, listed, left)
		}
		if got := rooms.MembersOf("r1"); len(got) != 1 || got[0] != "B" {
			t.Fatalf("round %d: members %v, want [B]", i, got)
		}
	}
}
