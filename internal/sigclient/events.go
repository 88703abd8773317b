package sigclient

import (
	"encoding/json"
	"fmt"

	"github.com/faizanamer123/openassign-call/internal/protocol"
)

// Event is a decoded server to client message.
type Event interface {
	event()
}

// Joined carries the room roster after any member joins.
type Joined struct {
	Room      string
	Members   []string
	Initiator string
}

// Left reports that ID departed; Members is the remaining roster.
type Left struct {
	Room    string
	ID      string
	Members []string
}

// Offer is a relayed SDP offer.
type Offer struct {
	From string
	SDP  json.RawMessage
}

// Answer is a relayed SDP answer.
type Answer struct {
	From string
	SDP  json.RawMessage
}

// Candidate is a relayed ICE candidate.
type Candidate struct {
	From      string
	Candidate json.RawMessage
}

// ServerError is a rejection sent by the relay.
type ServerError struct {
	Code    string
	Message string
}

func (Joined) event()      {}
func (Left) event()        {}
func (Offer) event()       {}
func (Answer) event()      {}
func (Candidate) event()   {}
func (ServerError) event() {}

func (e ServerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Decode turns a server message into its typed event.
func Decode(msg *protocol.Message) (Event, error) {
	switch msg.Type {
	case protocol.TypeJoined:
		var b protocol.JoinedBody
		if err := msg.Decode(&b); err != nil {
			return nil, err
		}
		return Joined{Room: b.Room, Members: b.Members, Initiator: b.Initiator}, nil

	case protocol.TypeLeft:
		var b protocol.LeftBody
		if err := msg.Decode(&b); err != nil {
			return nil, err
		}
		return Left{Room: b.Room, ID: b.ID, Members: b.Members}, nil

	case protocol.TypeOfferReceived, protocol.TypeAnswerReceived, protocol.TypeICECandidateReceived:
		var b protocol.RelayBody
		if err := msg.Decode(&b); err != nil {
			return nil, err
		}
		switch msg.Type {
		case protocol.TypeOfferReceived:
			return Offer{From: b.From, SDP: b.SDP}, nil
		case protocol.TypeAnswerReceived:
			return Answer{From: b.From, SDP: b.SDP}, nil
		}
		return Candidate{From: b.From, Candidate: b.Candidate}, nil

	case protocol.TypeError:
		var b protocol.ErrorBody
		if err := msg.Decode(&b); err != nil {
			return nil, err
		}
		return ServerError{Code: b.Code, Message: b.Message}, nil
	}
	return nil, fmt.Errorf("unknown message type %q", msg.Type)
}
