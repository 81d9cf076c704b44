package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dkeye/Captions/internal/app/captions"
	"github.com/dkeye/Captions/internal/core"
	"github.com/dkeye/Captions/internal/domain"
)

// Console prints captions and connection progress for one client. It is
// safe to call from the orchestrator loop and data channel callbacks at the
// same time.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) OnCaption(from domain.PeerID, msg captions.Message) {
	at := time.UnixMilli(msg.Timestamp).Format(time.TimeOnly)
	c.println(fmt.Sprintf("%s %s %s",
		MutedStyle.Render(at),
		SpeakerStyle.Render(shortID(from)+":"),
		msg.Text,
	))
}

func (c *Console) OnChannelError(err *core.ChannelError) {
	c.println(fmt.Sprintf("%s %s", WarningStyle.Render(IconWarning), WarningStyle.Render(err.Error())))
}

func (c *Console) JoinStateChanged(state core.JoinState) {
	switch state {
	case core.JoinJoined:
		c.println(fmt.Sprintf("%s %s", IconSuccess, SuccessStyle.Render("joined room")))
	case core.JoinJoining:
		c.println(MutedStyle.Render("joining room..."))
	case core.JoinIdle:
		c.println(MutedStyle.Render("not in a room"))
	}
}

func (c *Console) SessionStateChanged(remote domain.PeerID, state core.SessionState, reason core.CloseReason) {
	peer := shortID(remote)
	switch state {
	case core.SessionConnected:
		c.println(fmt.Sprintf("%s %s %s", IconConnect, SuccessStyle.Render("connected"), peer))
	case core.SessionClosed:
		line := fmt.Sprintf("%s %s", IconPeer, MutedStyle.Render("closed "+peer))
		if reason != core.ReasonNone {
			line += MutedStyle.Render(" (" + string(reason) + ")")
		}
		c.println(line)
	case core.SessionNegotiating:
		c.println(MutedStyle.Render("negotiating with " + peer))
	}
}

// Errorf prints a one-line error.
func (c *Console) Errorf(format string, args ...any) {
	c.println(fmt.Sprintf("%s %s", ErrorStyle.Render(IconError), ErrorStyle.Render(fmt.Sprintf(format, args...))))
}

func (c *Console) Println(s string) { c.println(s) }

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, s)
}

func shortID(id domain.PeerID) string {
	s := string(id)
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
