// Package vosk streams PCM audio to a Vosk websocket server and reports
// final transcripts.
package vosk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSampleRate = 16000
	// chunkSize is 250ms of 16 kHz mono 16-bit audio.
	chunkSize = 8000
)

type config struct {
	Config struct {
		SampleRate int `json:"sample_rate"`
	} `json:"config"`
}

// Result is one recognizer message. Partial results carry Partial, final
// ones Text.
type Result struct {
	Text    string `json:"text"`
	Partial string `json:"partial"`
}

type Client struct {
	url        string
	sampleRate int
	dialer     *websocket.Dialer
}

func New(url string, sampleRate int) *Client {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Client{url: url, sampleRate: sampleRate, dialer: websocket.DefaultDialer}
}

// Stream sends pcm until EOF and calls onFinal for each non-empty final
// transcript. It returns after the server has flushed its last result.
func (c *Client) Stream(ctx context.Context, pcm io.Reader, onFinal func(text string)) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("vosk dial: %w", err)
	}
	defer conn.Close()

	var cfg config
	cfg.Config.SampleRate = c.sampleRate
	if err := c.writeJSON(conn, cfg); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- c.readResults(conn, onFinal) }()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	buf := make([]byte, chunkSize)
	for {
		n, rerr := pcm.Read(buf)
		if n > 0 {
			if err := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); err != nil {
				return fmt.Errorf("vosk write: %w", err)
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return fmt.Errorf("read pcm: %w", rerr)
		}
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"eof":1}`)); err != nil {
		return fmt.Errorf("vosk eof: %w", err)
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) writeJSON(conn *websocket.Conn, v any) error {
	b, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return fmt.Errorf("vosk config: %w", err)
	}
	return nil
}

// readResults runs until the server closes the stream.
func (c *Client) readResults(conn *websocket.Conn, onFinal func(string)) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, io.EOF) {
				return nil
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return nil
			}
			return fmt.Errorf("vosk read: %w", err)
		}
		var res Result
		if err := sonic.Unmarshal(data, &res); err != nil {
			log.Warn().Err(err).Str("module", "vosk").Msg("bad result")
			continue
		}
		if text := strings.TrimSpace(res.Text); text != "" {
			onFinal(text)
		} else if res.Partial != "" {
			log.Debug().Str("module", "vosk").Str("partial", res.Partial).Msg("partial")
		}
	}
}
