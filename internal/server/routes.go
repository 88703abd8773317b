package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/faizanamer123/openassign-call/internal/signaling"
)

// Options configures the HTTP surface of the relay.
type Options struct {
	// AllowedOrigins lists the Origin header values accepted on /ws.
	// An empty list, or "*", accepts any origin.
	AllowedOrigins []string

	Logger *slog.Logger
}

// RoomInfo is one entry of the /rooms listing.
type RoomInfo struct {
	Name      string   `json:"name"`
	Members   []string `json:"members"`
	Initiator string   `json:"initiator,omitempty"`
}

// Stats is the /rooms response body.
type Stats struct {
	Connections int        `json:"connections"`
	Rooms       []RoomInfo `json:"rooms"`
	Time        time.Time  `json:"time"`
}

// NewHandler returns the relay's routes: /ws for signaling, /health and
// /rooms for operators.
func NewHandler(router *signaling.Router, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthCheckHandler)
	mux.HandleFunc("GET /rooms", roomsHandler(router))
	mux.HandleFunc("/ws", ServeWs(router, newUpgrader(opts.AllowedOrigins), log))
	return mux
}

func newUpgrader(origins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  64 * 1024, // 64 KB
		WriteBufferSize: 64 * 1024, // 64 KB
		CheckOrigin: func(r *http.Request) bool {
			if len(origins) == 0 || slices.Contains(origins, "*") {
				return true
			}
			origin := r.Header.Get("Origin")
			// Non-browser peers send no Origin.
			return origin == "" || slices.Contains(origins, origin)
		},
	}
}

// Health Check endpoint
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling server is healthy."))
}

func roomsHandler(router *signaling.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snaps := router.Registry().Rooms().Stats()
		stats := Stats{
			Connections: router.Connections(),
			Rooms:       make([]RoomInfo, 0, len(snaps)),
			Time:        time.Now().UTC(),
		}
		for _, s := range snaps {
			stats.Rooms = append(stats.Rooms, RoomInfo{
				Name:      s.Name,
				Members:   s.Members,
				Initiator: s.Initiator,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	}
}

// ServeWs returns an http.HandlerFunc that upgrades the request and runs
// the connection until it closes.
func ServeWs(router *signaling.Router, upgrader *websocket.Upgrader, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("Failed to upgrade connection", "remote", r.RemoteAddr, "error", err)
			return
		}

		client := signaling.NewClient(conn, log)
		session, err := router.Connect(uuid.NewString(), client)
		if err != nil {
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			conn.Close()
			return
		}

		log.Debug("Client connected", "conn", session.ID, "remote", client.RemoteAddr())
		go client.Serve(router, session)
	}
}
