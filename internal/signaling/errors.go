package signaling

import (
	"errors"

	"github.com/faizanamer123/openassign-call/internal/protocol"
)

var (
	ErrDuplicateParticipant = errors.New("participant already registered")
	ErrAlreadyJoined        = errors.New("connection already joined a room")
	ErrParticipantNotFound  = errors.New("participant not found")
	ErrRoomNotFound         = errors.New("room not found")
	ErrNotAMember           = errors.New("sender is not a member of the room")
	ErrBadRequest           = errors.New("malformed message")
	ErrUnknownType          = errors.New("unknown message type")
	ErrRateLimited          = errors.New("message rate exceeded")
)

// errorCode maps a router error to the code reported on the wire.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateParticipant):
		return protocol.CodeDuplicateParticipant
	case errors.Is(err, ErrAlreadyJoined):
		return protocol.CodeAlreadyJoined
	case errors.Is(err, ErrRoomNotFound):
		return protocol.CodeRoomNotFound
	case errors.Is(err, ErrNotAMember):
		return protocol.CodeNotAMember
	case errors.Is(err, ErrUnknownType):
		return protocol.CodeUnknownType
	case errors.Is(err, ErrRateLimited):
		return protocol.CodeRateLimited
	default:
		return protocol.CodeBadRequest
	}
}

// fatal reports whether the offending connection should be closed after
// the error is delivered.
func fatal(err error) bool {
	return errors.Is(err, ErrDuplicateParticipant) || errors.Is(err, ErrRateLimited)
}
