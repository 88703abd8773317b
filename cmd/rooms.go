package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/faizanamer123/openassign-call/internal/call"
	"github.com/faizanamer123/openassign-call/internal/config"
	"github.com/faizanamer123/openassign-call/internal/ident"
	"github.com/faizanamer123/openassign-call/internal/server"
	"github.com/faizanamer123/openassign-call/internal/ui"
)

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List the live rooms on a relay",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(config.Options{
			File:         flagConfig,
			SignalingURL: flagServer,
			LogLevel:     flagLogLevel,
		})
		if err != nil {
			return err
		}

		sp := ui.NewConnectionSpinner("Asking the relay...")
		sp.Start()
		stats, err := fetchRooms(cmd.Context(), cfg.SignalingURL)
		sp.Stop()
		if err != nil {
			return call.NewError("list rooms", err)
		}

		rows := make([]ui.RoomRow, len(stats.Rooms))
		for i, r := range stats.Rooms {
			rows[i] = ui.RoomRow{Name: r.Name, Members: r.Members, Initiator: r.Initiator}
		}
		ui.RenderRooms(ui.Output, rows, stats.Connections)
		return nil
	},
}

// roomsURL maps the websocket endpoint to the relay's /rooms listing.
func roomsURL(signalingURL string) (string, error) {
	u, err := url.Parse(signalingURL)
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
		return "", fmt.Errorf("invalid server URL %q: unsupported scheme", signalingURL)
	}
	u.Path = "/rooms"
	u.RawQuery = ""
	return u.String(), nil
}

func fetchRooms(ctx context.Context, signalingURL string) (*server.Stats, error) {
	target, err := roomsURL(signalingURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %s", target, resp.Status)
	}

	var stats server.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("decode rooms: %w", err)
	}
	return &stats, nil
}

// newRoomName generates a room name not currently live on the relay. An
// unreachable relay only skips the check; joining reports the real error.
func newRoomName(ctx context.Context, signalingURL string) string {
	taken := make(map[string]bool)
	if stats, err := fetchRooms(ctx, signalingURL); err == nil {
		for _, r := range stats.Rooms {
			taken[r.Name] = true
		}
	}
	return ident.NewUniqueRoomName(func(name string) bool { return !taken[name] })
}

func init() {
	rootCmd.AddCommand(roomsCmd)

	roomsCmd.Flags().StringVarP(&flagServer, "server", "s", "", "Signaling server URL (ws:// or wss://)")
}
