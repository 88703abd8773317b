package cmd

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faizanamer123/openassign-call/internal/protocol"
	"github.com/faizanamer123/openassign-call/internal/server"
	"github.com/faizanamer123/openassign-call/internal/signaling"
)

func TestRoomsURL(t *testing.T) {
	tests := map[string]string{
		"ws://localhost:8080/ws":          "http://localhost:8080/rooms",
		"wss://relay.example/ws?token=1":  "https://relay.example/rooms",
		"https://relay.example/signaling": "https://relay.example/rooms",
	}
	for in, want := range tests {
		got, err := roomsURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := roomsURL("ftp://relay.example")
	assert.Error(t, err)
}

func TestFetchRooms(t *testing.T) {
	router := signaling.NewRouter(signaling.NewRegistry(signaling.NewRooms()), signaling.RouterOptions{})
	_, err := router.Registry().Register("alice", "demo", nopConn{}, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(server.NewHandler(router, server.Options{}))
	defer srv.Close()

	stats, err := fetchRooms(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws")
	require.NoError(t, err)
	require.Len(t, stats.Rooms, 1)
	assert.Equal(t, "demo", stats.Rooms[0].Name)
	assert.Equal(t, []string{"alice"}, stats.Rooms[0].Members)
}

type nopConn struct{}

func (nopConn) Send(*protocol.Message) bool { return true }
func (nopConn) Close()                      {}
