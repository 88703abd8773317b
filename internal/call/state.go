package call

// State is the adapter's position in the call lifecycle. It is the only
// record of negotiation progress and is mutated by the adapter's event
// loop alone.
type State int

const (
	StateIdle State = iota
	StateJoining
	StateWaitingForPeer
	StateNegotiating
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateJoining:
		return "joining"
	case StateWaitingForPeer:
		return "waiting-for-peer"
	case StateNegotiating:
		return "negotiating"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Negotiation is the offer/answer sub-phase, finer grained than State.
type Negotiation int

const (
	NegotiationIdle Negotiation = iota
	NegotiationOfferPending
	NegotiationAwaitingAnswer
	NegotiationAnswerSent
	NegotiationConnected
)

func (n Negotiation) String() string {
	switch n {
	case NegotiationIdle:
		return "idle"
	case NegotiationOfferPending:
		return "offer-pending"
	case NegotiationAwaitingAnswer:
		return "awaiting-answer"
	case NegotiationAnswerSent:
		return "answer-sent"
	case NegotiationConnected:
		return "connected"
	}
	return "unknown"
}
