package sigclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faizanamer123/openassign-call/internal/protocol"
)

// echoServer answers every join with a single-member roster and records
// every frame it reads.
func echoServer(t *testing.T, frames chan<- string) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frames <- string(data)

			var msg protocol.Message
			if json.Unmarshal(data, &msg) != nil || msg.Type != protocol.TypeJoin {
				continue
			}
			var body protocol.JoinBody
			_ = msg.Decode(&body)
			reply, _ := protocol.Marshal(protocol.MustNew(protocol.TypeJoined, protocol.JoinedBody{
				Room:    body.Room,
				Members: []string{body.ID},
			}))
			if conn.WriteMessage(websocket.TextMessage, reply) != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDialRejectsScheme(t *testing.T) {
	_, err := Dial(context.Background(), "http://localhost:8080/ws", nil, nil)
	assert.ErrorContains(t, err, "scheme must be ws or wss")
}

func TestClientRoundTrip(t *testing.T) {
	frames := make(chan string, 8)
	url := echoServer(t, frames)

	c, err := Dial(context.Background(), url, nil, nil)
	require.NoError(t, err)

	require.NoError(t, c.Send(protocol.MustNew(protocol.TypeJoin, protocol.JoinBody{Room: "r", ID: "alice"})))

	select {
	case msg := <-c.Incoming():
		ev, err := Decode(msg)
		require.NoError(t, err)
		assert.Equal(t, Joined{Room: "r", Members: []string{"alice"}}, ev)
	case <-time.After(2 * time.Second):
		t.Fatal("no roster received")
	}
	assert.Equal(t, `{"type":"join","body":{"room":"r","id":"alice"}}`, <-frames)

	// A message queued right before Close still goes out.
	require.NoError(t, c.Send(protocol.MustNew(protocol.TypeLeave, protocol.JoinBody{Room: "r", ID: "alice"})))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	select {
	case f := <-frames:
		assert.Contains(t, f, `"type":"leave"`)
	case <-time.After(2 * time.Second):
		t.Fatal("leave was not flushed")
	}

	// Incoming is closed once the socket is gone.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-c.Incoming():
			if !ok {
				assert.ErrorIs(t, c.Send(protocol.MustNew(protocol.TypeLeave, nil)), ErrClosed)
				return
			}
		case <-deadline:
			t.Fatal("incoming was not closed")
		}
	}
}

func TestClientReportsDroppedConnection(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	t.Cleanup(srv.Close)

	c, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"), nil, nil)
	require.NoError(t, err)
	defer c.Close()

	select {
	case _, ok := <-c.Incoming():
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("incoming was not closed")
	}
	assert.Error(t, c.Err())
}
