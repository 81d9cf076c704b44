package wsclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/dkeye/Captions/internal/core"
)

// RoomsURL maps the signaling websocket URL to the room listing endpoint
// on the same server.
func RoomsURL(signalURL string) (string, error) {
	u, err := url.Parse(signalURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("invalid server URL scheme %q", u.Scheme)
	}
	prefix := strings.TrimSuffix(u.Path, "/ws/signal")
	prefix = strings.TrimSuffix(prefix, "/api")
	u.Path = prefix + "/api/rooms"
	u.RawQuery = ""
	return u.String(), nil
}

// FetchRooms asks the relay for its live rooms.
func FetchRooms(ctx context.Context, signalURL string) ([]core.RoomInfo, error) {
	endpoint, err := RoomsURL(signalURL)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rooms: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch rooms: %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch rooms: %w", err)
	}
	var rooms []core.RoomInfo
	if err := sonic.Unmarshal(body, &rooms); err != nil {
		return nil, fmt.Errorf("decode rooms: %w", err)
	}
	return rooms, nil
}
