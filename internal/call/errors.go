package call

import (
	"errors"
	"fmt"
)

var (
	ErrMediaDenied      = errors.New("local media unavailable")
	ErrSignalingLost    = errors.New("signaling connection lost")
	ErrSignalingError   = errors.New("signaling server error")
	ErrPeerLeft         = errors.New("peer left the call")
	ErrConnectionFailed = errors.New("connection failed")
	ErrNegotiation      = errors.New("negotiation failed")
	ErrUnexpectedSignal = errors.New("unexpected signal")
	ErrAlreadyStarted   = errors.New("call already started")
)

// CallError records which step of the call failed.
type CallError struct {
	Op      string
	Err     error
	Details string
}

func (e *CallError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *CallError {
	return &CallError{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *CallError {
	return &CallError{Op: op, Err: err, Details: details}
}
