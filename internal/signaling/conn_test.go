package signaling

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faizanamer123/openassign-call/internal/protocol"
)

// fakeConn records everything sent to it.
type fakeConn struct {
	mu     sync.Mutex
	msgs   []*protocol.Message
	closed bool
	full   bool
}

func (c *fakeConn) Send(msg *protocol.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.full {
		return false
	}
	c.msgs = append(c.msgs, msg)
	return true
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) messages() []*protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*protocol.Message(nil), c.msgs...)
}

func (c *fakeConn) types() []string {
	var out []string
	for _, m := range c.messages() {
		out = append(out, m.Type)
	}
	return out
}

func (c *fakeConn) last(t *testing.T) *protocol.Message {
	t.Helper()
	msgs := c.messages()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = nil
}
