package cmd

import (
	"testing"

	pion "github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"

	"github.com/faizanamer123/openassign-call/internal/call"
)

func TestRelayMode(t *testing.T) {
	s := &CallSession{}
	assert.Equal(t, "none", s.RelayMode())

	s.peer = &call.Peer{Policy: pion.ICETransportPolicyAll}
	assert.Equal(t, "direct", s.RelayMode())

	s.peer = &call.Peer{Policy: pion.ICETransportPolicyRelay}
	assert.Equal(t, "TURN", s.RelayMode())
}
