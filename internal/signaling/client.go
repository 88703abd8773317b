package signaling

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/faizanamer123/openassign-call/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024 // 64 KB - enough for WebRTC SDP messages

	// Outbound messages buffered per client before it counts as slow.
	sendBuffer = 256
)

// Client is a wrapper for a single websocket connection (a peer).
type Client struct {
	conn *websocket.Conn
	log  *slog.Logger

	// send is a buffered channel for all outbound messages.
	// Send writes to it and writePump drains it to the websocket.
	send chan *protocol.Message

	mu     sync.Mutex
	closed bool
}

// NewClient wraps an upgraded websocket connection.
func NewClient(conn *websocket.Conn, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		conn: conn,
		log:  log,
		send: make(chan *protocol.Message, sendBuffer),
	}
}

// Send queues msg for the write pump. It never blocks: a full buffer
// reports false.
func (c *Client) Send(msg *protocol.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close stops the write pump after it flushes queued messages. The read
// pump exits once the socket closes.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// RemoteAddr returns the peer's network address.
func (c *Client) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Serve runs the client's pumps until the connection ends, then
// disconnects the session from the router.
func (c *Client) Serve(router *Router, s *Session) {
	go c.writePump()
	c.readPump(router, s)
}

// readPump pumps messages from the websocket connection to the router.
//
// The application ensures that there is at most one reader on a
// connection by executing all reads from this goroutine, which also makes
// it the only caller of Handle for the session.
func (c *Client) readPump(router *Router, s *Session) {
	defer func() {
		router.Disconnect(s)
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("Read failed", "conn", s.ID, "error", err)
			}
			return
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.Send(protocol.MustNew(protocol.TypeError, protocol.ErrorBody{
				Code:    protocol.CodeBadRequest,
				Message: "frame is not a JSON message",
			}))
			continue
		}
		router.Handle(s, &msg)
	}
}

// writePump pumps messages from the router to the websocket connection.
//
// A goroutine running writePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The client was closed.
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			data, err := protocol.Marshal(message)
			if err != nil {
				c.log.Error("Encode failed", "type", message.Type, "error", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("Write failed", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
