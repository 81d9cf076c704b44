// Package captions ships caption text over the open data channels and
// parses what comes back.
package captions

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dkeye/Captions/internal/core"
	"github.com/dkeye/Captions/internal/domain"
	"github.com/rs/zerolog/log"
)

// Label names the data channel that carries captions.
const Label = "subtitles"

const messageType = "subtitle"

// Message is the JSON payload on a caption channel. Timestamp is Unix
// milliseconds.
type Message struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// Channels lists the currently open caption channels.
type Channels interface {
	Snapshot() map[domain.PeerID]core.DataChannel
}

// Sink renders inbound captions and reports unusable payloads.
type Sink interface {
	OnCaption(from domain.PeerID, msg Message)
	OnChannelError(err *core.ChannelError)
}

type Bus struct {
	channels Channels
	sink     Sink
	now      func() time.Time
}

func New(channels Channels, sink Sink) *Bus {
	return &Bus{channels: channels, sink: sink, now: time.Now}
}

// Broadcast sends text to every open channel and returns how many accepted
// it. A failing channel is logged and skipped.
func (b *Bus) Broadcast(text string, timestamp int64) int {
	payload, err := sonic.MarshalString(Message{Type: messageType, Text: text, Timestamp: timestamp})
	if err != nil {
		log.Error().Err(err).Str("module", "captions").Msg("marshal caption")
		return 0
	}
	sent := 0
	for peer, dc := range b.channels.Snapshot() {
		if err := dc.SendText(payload); err != nil {
			log.Warn().Err(err).Str("module", "captions").Str("peer", string(peer)).Msg("caption send failed")
			continue
		}
		sent++
	}
	log.Debug().Str("module", "captions").Int("channels", sent).Msg("caption broadcast")
	return sent
}

// OnFinalText broadcasts a transcription result stamped with the current
// time.
func (b *Bus) OnFinalText(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	b.Broadcast(text, b.now().UnixMilli())
}

// OnInbound parses a payload received from remote. Failures go to the sink
// as a *core.ChannelError; the channel stays open.
func (b *Bus) OnInbound(remote domain.PeerID, raw []byte) {
	msg, err := Parse(raw)
	if err != nil {
		cerr := &core.ChannelError{Peer: remote, Err: core.ErrMalformedCaption, Details: err.Error()}
		log.Warn().Err(cerr).Str("module", "captions").Msg("bad caption")
		if b.sink != nil {
			b.sink.OnChannelError(cerr)
		}
		return
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = b.now().UnixMilli()
	}
	if b.sink != nil {
		b.sink.OnCaption(remote, msg)
	}
}

// Parse decodes one caption payload.
func Parse(raw []byte) (Message, error) {
	var msg Message
	if err := sonic.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("decode: %w", err)
	}
	if msg.Type != messageType {
		return Message{}, fmt.Errorf("type %q", msg.Type)
	}
	if msg.Text == "" {
		return Message{}, fmt.Errorf("missing text")
	}
	return msg, nil
}
