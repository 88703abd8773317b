package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayedType(t *testing.T) {
	for in, want := range map[string]string{
		TypeSendOffer:        TypeOfferReceived,
		TypeSendAnswer:       TypeAnswerReceived,
		TypeSendICECandidate: TypeICECandidateReceived,
	} {
		got, ok := RelayedType(in)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := RelayedType(TypeJoin)
	assert.False(t, ok)
}

func TestMarshalKeepsMarkup(t *testing.T) {
	raw := json.RawMessage(`{"sdp":"a=<x>&y"}`)
	data, err := Marshal(RelayBody{From: "bob", SDP: raw})
	require.NoError(t, err)
	assert.Equal(t, `{"from":"bob","sdp":{"sdp":"a=<x>&y"}}`, string(data))
}

func TestNewAndDecode(t *testing.T) {
	msg, err := New(TypeJoin, JoinBody{Room: "r", ID: "alice"})
	require.NoError(t, err)

	data, err := Marshal(msg)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"join","body":{"room":"r","id":"alice"}}`, string(data))

	var body JoinBody
	require.NoError(t, msg.Decode(&body))
	assert.Equal(t, JoinBody{Room: "r", ID: "alice"}, body)
}

func TestDecodeEmptyBody(t *testing.T) {
	msg := MustNew(TypeLeave, nil)
	assert.Empty(t, msg.Body)

	var body JoinBody
	assert.ErrorContains(t, msg.Decode(&body), "has no body")
}

func TestMarshalKeepsBodyBytes(t *testing.T) {
	body := json.RawMessage(`{ "room": "r",
	  "id": "alice" }`)
	data, err := Marshal(&Message{Type: TypeJoin, Body: body})
	require.NoError(t, err)
	assert.Equal(t, `{"type":"join","body":`+string(body)+`}`, string(data))

	data, err = Marshal(Message{Type: TypeLeave})
	require.NoError(t, err)
	assert.Equal(t, `{"type":"leave"}`, string(data))

	_, err = Marshal(&Message{Type: TypeJoin, Body: json.RawMessage(`{"room":`)})
	assert.Error(t, err)
}

func TestNewRelay(t *testing.T) {
	sdp := json.RawMessage(`{ "type": "offer", "sdp": "v=0\r\n" }`)
	msg, err := NewRelay(TypeOfferReceived, "bob", sdp, nil)
	require.NoError(t, err)
	assert.Equal(t, TypeOfferReceived, msg.Type)
	assert.Equal(t, `{"from":"bob","sdp":`+string(sdp)+`}`, string(msg.Body))

	cand := json.RawMessage(`"candidate:1 1 udp 2122260223 10.0.0.1 5000 typ host"`)
	msg, err = NewRelay(TypeICECandidateReceived, "", nil, cand)
	require.NoError(t, err)
	assert.Equal(t, `{"candidate":`+string(cand)+`}`, string(msg.Body))

	var body RelayBody
	require.NoError(t, msg.Decode(&body))
	assert.Equal(t, string(cand), string(body.Candidate))

	_, err = NewRelay(TypeOfferReceived, "bob", json.RawMessage(`{"type":`), nil)
	assert.Error(t, err)
}
