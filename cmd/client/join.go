package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dkeye/Captions/internal/adapters/media"
	"github.com/dkeye/Captions/internal/adapters/rtc"
	"github.com/dkeye/Captions/internal/adapters/vosk"
	"github.com/dkeye/Captions/internal/adapters/wsclient"
	"github.com/dkeye/Captions/internal/app/captions"
	"github.com/dkeye/Captions/internal/app/orch"
	"github.com/dkeye/Captions/internal/com"
	"github.com/dkeye/Captions/internal/core"
	"github.com/dkeye/Captions/internal/domain"
	"github.com/dkeye/Captions/internal/proto"
	"github.com/dkeye/Captions/internal/ui"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	flagPCM        string
	flagSampleRate int
)

var joinCmd = &cobra.Command{
	Use:   "join <room>",
	Short: "Join a room and exchange captions",
	Long: `Join a room and exchange captions with every other member.

Without --vosk-url every line typed on stdin is sent as a caption. With
--vosk-url raw 16-bit mono PCM is read from --pcm (or stdin) and the
recognizer's final transcripts are sent instead.

Examples:
  captions join lobby
  captions join lobby --vosk-url ws://localhost:2700 --pcm mic.raw`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		room := domain.RoomID(args[0])
		if err := room.Validate(); err != nil {
			return err
		}
		return joinRoom(cmd.Context(), room)
	},
}

func init() {
	joinCmd.Flags().StringVar(&flagPCM, "pcm", "", "PCM input file for transcription; empty or - reads stdin")
	joinCmd.Flags().IntVar(&flagSampleRate, "sample-rate", vosk.DefaultSampleRate, "PCM sample rate")
}

// signalLink lets the orchestrator send before the websocket client, which
// needs the orchestrator as its handler, exists.
type signalLink struct {
	client *wsclient.Client
}

func (l *signalLink) Send(msg proto.Message) error { return l.client.Send(msg) }

func joinRoom(parent context.Context, room domain.RoomID) error {
	sigCtx, stopSignals := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	factory, err := rtc.NewFactory(rtc.Options{
		ICEServers:      rtc.ICEServers(cfg.STUN, cfg.TURN, cfg.TURNUser, cfg.TURNPass),
		IncludeLoopback: cfg.IncludeLoopback,
		PionLogLevel:    zerolog.WarnLevel,
	})
	if err != nil {
		return err
	}

	channels := com.NewMap[domain.PeerID, core.DataChannel]()
	bus := captions.New(channels, console)
	link := &signalLink{}
	o := orch.New(orch.Options{
		Room:               room,
		Signal:             link,
		Conns:              factory,
		Channels:           channels,
		Inbound:            bus.OnInbound,
		Observer:           console,
		NegotiationTimeout: cfg.NegotiationTimeout,
	})
	link.client = wsclient.New(cfg.ServerURL, o)

	var wg sync.WaitGroup
	run := func(f func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(ctx)
		}()
	}
	run(o.Run)
	run(link.client.Run)

	silence, err := media.NewSilence("captions-" + string(room))
	if err != nil {
		log.Warn().Err(err).Str("module", "client").Msg("no local audio track")
		o.MediaUnavailable()
	} else {
		run(silence.Run)
		o.MediaReady([]webrtc.TrackLocal{silence.Track()})
	}

	console.Println(ui.TitleStyle.Render(fmt.Sprintf("%s %s", ui.IconRoom, room)))
	go func() {
		if err := readCaptions(sigCtx, bus); err != nil {
			console.Errorf("caption input: %v", err)
		}
	}()

	<-sigCtx.Done()
	if sessions := o.Sessions(); len(sessions) > 0 {
		console.Println(ui.SessionsView(sessions))
	}
	cancel()
	wg.Wait()
	return nil
}

// readCaptions feeds the bus from the recognizer when configured, otherwise
// from stdin lines.
func readCaptions(ctx context.Context, bus *captions.Bus) error {
	if cfg.VoskURL != "" {
		in := io.Reader(os.Stdin)
		if flagPCM != "" && flagPCM != "-" {
			f, err := os.Open(flagPCM)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		return vosk.New(cfg.VoskURL, flagSampleRate).Stream(ctx, in, bus.OnFinalText)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		bus.OnFinalText(scanner.Text())
	}
	return scanner.Err()
}
