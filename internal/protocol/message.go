// Package protocol defines the JSON-framed control messages exchanged
// between call peers and the signaling relay.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Message is the envelope for every frame on the signaling socket, in
// both directions.
type Message struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"body,omitempty"`
}

// Client to server message types.
const (
	TypeJoin             = "join"
	TypeLeave            = "leave"
	TypeSendOffer        = "send_offer"
	TypeSendAnswer       = "send_answer"
	TypeSendICECandidate = "send_ice_candidate"
)

// Server to client message types.
const (
	TypeJoined               = "joined"
	TypeLeft                 = "left"
	TypeOfferReceived        = "offer_sdp_received"
	TypeAnswerReceived       = "answer_sdp_received"
	TypeICECandidateReceived = "ice_candidate_received"
	TypeError                = "error"
)

// RelayedType maps an inbound send_* type to the *_received type delivered
// to the other members of the room.
func RelayedType(t string) (string, bool) {
	switch t {
	case TypeSendOffer:
		return TypeOfferReceived, true
	case TypeSendAnswer:
		return TypeAnswerReceived, true
	case TypeSendICECandidate:
		return TypeICECandidateReceived, true
	}
	return "", false
}

// JoinBody is the body of join and leave.
type JoinBody struct {
	Room string `json:"room"`
	ID   string `json:"id"`
}

// JoinedBody is the roster broadcast to every member after a join.
// Initiator names the member expected to send the offer; it is empty
// while the room has a single member.
type JoinedBody struct {
	Room      string   `json:"room"`
	Members   []string `json:"members"`
	Initiator string   `json:"initiator,omitempty"`
}

// LeftBody is sent to the remaining members when ID departs.
type LeftBody struct {
	Room    string   `json:"room"`
	ID      string   `json:"id"`
	Members []string `json:"members"`
}

// SignalBody is the body of send_offer, send_answer and send_ice_candidate.
// SDP and Candidate are opaque to the relay.
type SignalBody struct {
	Room      string          `json:"room"`
	ID        string          `json:"id"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// RelayBody is the body of the *_received messages.
type RelayBody struct {
	From      string          `json:"from,omitempty"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// ErrorBody reports a rejected message back to its sender.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes carried in ErrorBody.Code.
const (
	CodeDuplicateParticipant = "duplicate_participant"
	CodeAlreadyJoined        = "already_joined"
	CodeRoomNotFound         = "room_not_found"
	CodeNotAMember           = "not_a_member"
	CodeBadRequest           = "bad_request"
	CodeUnknownType          = "unknown_type"
	CodeRateLimited          = "rate_limited"
)

// New builds a message of type t with body encoded as JSON.
func New(t string, body any) (*Message, error) {
	if body == nil {
		return &Message{Type: t}, nil
	}
	b, err := Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s body: %w", t, err)
	}
	return &Message{Type: t, Body: b}, nil
}

// MustNew is New for bodies that cannot fail to encode.
func MustNew(t string, body any) *Message {
	m, err := New(t, body)
	if err != nil {
		panic(err)
	}
	return m
}

// Decode unmarshals the message body into v.
func (m *Message) Decode(v any) error {
	if len(m.Body) == 0 {
		return fmt.Errorf("protocol: %s has no body", m.Type)
	}
	if err := json.Unmarshal(m.Body, v); err != nil {
		return fmt.Errorf("protocol: decode %s body: %w", m.Type, err)
	}
	return nil
}

// NewRelay builds a *_received message carrying sdp and candidate exactly
// as the sender wrote them. The body is assembled by hand because
// encoding/json compacts embedded raw values.
func NewRelay(t, from string, sdp, candidate json.RawMessage) (*Message, error) {
	buf := []byte{'{'}
	sep := func() {
		if len(buf) > 1 {
			buf = append(buf, ',')
		}
	}
	if from != "" {
		f, err := Marshal(from)
		if err != nil {
			return nil, err
		}
		buf = append(buf, `"from":`...)
		buf = append(buf, f...)
	}
	for _, field := range []struct {
		key string
		raw json.RawMessage
	}{{"sdp", sdp}, {"candidate", candidate}} {
		if len(field.raw) == 0 {
			continue
		}
		if !json.Valid(field.raw) {
			return nil, fmt.Errorf("protocol: %s %s is not valid JSON", t, field.key)
		}
		sep()
		buf = append(buf, '"')
		buf = append(buf, field.key...)
		buf = append(buf, `":`...)
		buf = append(buf, field.raw...)
	}
	buf = append(buf, '}')
	return &Message{Type: t, Body: buf}, nil
}

// Marshal encodes v without HTML escaping. Messages are written by hand
// so their bodies keep their original bytes.
func Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case *Message:
		return m.appendJSON(nil)
	case Message:
		return m.appendJSON(nil)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (m *Message) appendJSON(buf []byte) ([]byte, error) {
	t, err := Marshal(m.Type)
	if err != nil {
		return nil, err
	}
	buf = append(buf, `{"type":`...)
	buf = append(buf, t...)
	if len(m.Body) > 0 {
		if !json.Valid(m.Body) {
			return nil, fmt.Errorf("protocol: %s body is not valid JSON", m.Type)
		}
		buf = append(buf, `,"body":`...)
		buf = append(buf, m.Body...)
	}
	return append(buf, '}'), nil
}
