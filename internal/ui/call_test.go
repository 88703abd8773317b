package ui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faizanamer123/openassign-call/internal/call"
)

func state(s call.State) *call.State { return &s }

func newTestModel(controls Controls) *CallModel {
	m := NewCallModel("lucky-otter", "alice", call.MediaState{Audio: true, Video: true}, controls,
		make(chan CallUpdate), make(chan struct{}))
	now := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return now }
	return m
}

func TestCallModelStates(t *testing.T) {
	m := newTestModel(Controls{})
	assert.Contains(t, m.View(), "Joining room")

	m.Update(CallUpdate{State: state(call.StateWaitingForPeer)})
	assert.Contains(t, m.View(), "Waiting for someone to join")
	assert.Contains(t, m.View(), "assigncall call lucky-otter")

	m.Update(CallUpdate{State: state(call.StateNegotiating)})
	assert.Contains(t, m.View(), "connecting")

	m.Update(CallUpdate{State: state(call.StateConnected), PeerState: "connected"})
	assert.Contains(t, m.View(), "In call")
	assert.Equal(t, call.StateConnected, m.State())
}

func TestCallModelClosedQuits(t *testing.T) {
	m := newTestModel(Controls{})

	_, cmd := m.Update(CallUpdate{State: state(call.StateClosed), Err: call.NewError("call", call.ErrPeerLeft)})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Contains(t, m.View(), "The other side hung up")
}

func TestCallModelClosedWithError(t *testing.T) {
	m := newTestModel(Controls{})
	m.Update(CallUpdate{State: state(call.StateClosed), Err: errors.New("boom")})
	assert.Contains(t, m.View(), "boom")
}

func TestCallModelKeys(t *testing.T) {
	audio, video := true, true
	hungUp := false
	m := newTestModel(Controls{
		ToggleAudio: func() bool { audio = !audio; return audio },
		ToggleVideo: func() bool { video = !video; return video },
		Hangup:      func() { hungUp = true },
	})

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("m")})
	assert.False(t, m.local.Audio)
	assert.Contains(t, m.View(), IconMicOff)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("v")})
	assert.False(t, m.local.Video)
	assert.Contains(t, m.View(), IconCameraOff)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.True(t, hungUp)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Empty(t, m.View())
}

func TestCallModelRemoteMedia(t *testing.T) {
	m := newTestModel(Controls{})
	assert.NotContains(t, m.View(), "Peer:")

	m.Update(CallUpdate{Remote: &call.MediaState{Audio: false, Video: true}})
	assert.Contains(t, m.View(), "Peer: "+IconMicOff+" "+IconCamera)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", formatDuration(0.4))
	assert.Equal(t, "42s", formatDuration(42))
	assert.Equal(t, "2m05s", formatDuration(125))
	assert.Equal(t, "1h01m", formatDuration(3660))
}
