package call

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestEncodeControlMediaState(t *testing.T) {
	data, err := EncodeControl(ControlMediaState, MediaState{Audio: true})
	require.NoError(t, err)

	msg, err := DecodeControl(data)
	require.NoError(t, err)
	assert.Equal(t, ControlMediaState, msg.Type)

	var state MediaState
	require.NoError(t, msg.DecodePayload(&state))
	assert.Equal(t, MediaState{Audio: true, Video: false}, state)
}

func TestEncodeControlHangupHasNoPayload(t *testing.T) {
	data, err := EncodeControl(ControlHangup, nil)
	require.NoError(t, err)

	msg, err := DecodeControl(data)
	require.NoError(t, err)
	assert.Equal(t, ControlHangup, msg.Type)
	assert.Empty(t, msg.Payload)
}

func TestDecodeControlGarbage(t *testing.T) {
	_, err := DecodeControl([]byte{0xc1})
	assert.Error(t, err)
}

func TestControlDispatch(t *testing.T) {
	c := &ControlChannel{log: slog.Default()}

	var got []MediaState
	hungUp := 0
	c.OnMediaState(func(s MediaState) { got = append(got, s) })
	c.OnHangup(func() { hungUp++ })

	state, err := EncodeControl(ControlMediaState, MediaState{Video: true})
	require.NoError(t, err)
	hangup, err := EncodeControl(ControlHangup, nil)
	require.NoError(t, err)
	unknown, err := msgpack.Marshal(ControlMessage{Type: "wave"})
	require.NoError(t, err)

	c.dispatch(state)
	c.dispatch(unknown)
	c.dispatch([]byte("not msgpack"))
	c.dispatch(hangup)

	assert.Equal(t, []MediaState{{Video: true}}, got)
	assert.Equal(t, 1, hungUp)
}
