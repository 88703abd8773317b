package sigclient

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faizanamer123/openassign-call/internal/protocol"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		msg  *protocol.Message
		want Event
	}{
		{
			name: "joined",
			msg:  protocol.MustNew(protocol.TypeJoined, protocol.JoinedBody{Room: "r", Members: []string{"a", "b"}, Initiator: "b"}),
			want: Joined{Room: "r", Members: []string{"a", "b"}, Initiator: "b"},
		},
		{
			name: "left",
			msg:  protocol.MustNew(protocol.TypeLeft, protocol.LeftBody{Room: "r", ID: "a", Members: []string{"b"}}),
			want: Left{Room: "r", ID: "a", Members: []string{"b"}},
		},
		{
			name: "offer",
			msg:  protocol.MustNew(protocol.TypeOfferReceived, protocol.RelayBody{From: "b", SDP: json.RawMessage(`"v=0"`)}),
			want: Offer{From: "b", SDP: json.RawMessage(`"v=0"`)},
		},
		{
			name: "answer",
			msg:  protocol.MustNew(protocol.TypeAnswerReceived, protocol.RelayBody{From: "a", SDP: json.RawMessage(`"v=0"`)}),
			want: Answer{From: "a", SDP: json.RawMessage(`"v=0"`)},
		},
		{
			name: "candidate",
			msg:  protocol.MustNew(protocol.TypeICECandidateReceived, protocol.RelayBody{From: "a", Candidate: json.RawMessage(`{"candidate":"c"}`)}),
			want: Candidate{From: "a", Candidate: json.RawMessage(`{"candidate":"c"}`)},
		},
		{
			name: "error",
			msg:  protocol.MustNew(protocol.TypeError, protocol.ErrorBody{Code: protocol.CodeNotAMember, Message: "nope"}),
			want: ServerError{Code: protocol.CodeNotAMember, Message: "nope"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeRejects(t *testing.T) {
	_, err := Decode(&protocol.Message{Type: "ring"})
	assert.ErrorContains(t, err, "unknown message type")

	_, err = Decode(&protocol.Message{Type: protocol.TypeJoined})
	assert.Error(t, err)
}

func TestServerErrorMessage(t *testing.T) {
	err := ServerError{Code: protocol.CodeRateLimited, Message: "slow down"}
	assert.EqualError(t, err, "rate_limited: slow down")
}
