package call

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	pion "github.com/pion/webrtc/v4"

	"github.com/faizanamer123/openassign-call/internal/protocol"
	"github.com/faizanamer123/openassign-call/internal/sigclient"
)

// Signaler is the adapter's connection to the relay.
type Signaler interface {
	Send(msg *protocol.Message) error

	// Incoming is closed when the connection ends.
	Incoming() <-chan *protocol.Message

	// Err reports why the connection ended, if known.
	Err() error

	Close() error
}

// Options configures an Adapter.
type Options struct {
	Room string
	ID   string

	// Dial opens the signaling connection. It runs only after local media
	// has been acquired.
	Dial func(ctx context.Context) (Signaler, error)

	// NewPeerConnection creates the WebRTC peer connection.
	NewPeerConnection func() (PeerConnection, error)

	Media MediaSource

	// OnStateChange observes every transition, on the adapter goroutine.
	OnStateChange func(State)

	// OnPeerConnectionState observes ICE/DTLS connectivity, which moves
	// independently of State once descriptions are exchanged.
	OnPeerConnectionState func(pion.PeerConnectionState)

	Logger *slog.Logger
}

// maxPendingCandidates bounds the remote candidates held before a remote
// description arrives.
const maxPendingCandidates = 64

// event is posted into the adapter loop from other goroutines.
type event interface{}

type localCandidate struct {
	init pion.ICECandidateInit
}

type peerState struct {
	state pion.PeerConnectionState
}

type hangup struct{}

// Adapter drives one participant's side of a call: it joins the room,
// decides whether to offer, exchanges descriptions and candidates, and
// releases every resource when the call ends. All state lives on the
// goroutine running Run.
type Adapter struct {
	opts Options
	log  *slog.Logger

	state       State
	negotiation Negotiation
	remoteSet   bool
	pending     []pion.ICECandidateInit

	sig Signaler
	pc  PeerConnection

	events chan event
	leave  chan struct{}
	done   chan struct{}

	mu         sync.Mutex
	started    bool
	leaveOnce  sync.Once
	snapshotSt State
}

// NewAdapter creates an idle adapter.
func NewAdapter(opts Options) *Adapter {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{
		opts:   opts,
		log:    log.With("room", opts.Room, "participant", opts.ID),
		events: make(chan event, 64),
		leave:  make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// State returns the last published state. It is safe for concurrent use.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotSt
}

// Done is closed when Run has returned.
func (a *Adapter) Done() <-chan struct{} {
	return a.done
}

// Leave ends the call. It is safe to call from any goroutine, any number
// of times.
func (a *Adapter) Leave() {
	a.leaveOnce.Do(func() { close(a.leave) })
}

// PeerHungUp tells the adapter the remote peer ended the call out of band.
func (a *Adapter) PeerHungUp() {
	a.post(hangup{})
}

// SetAudioEnabled mutes or unmutes the local microphone.
func (a *Adapter) SetAudioEnabled(enabled bool) {
	a.opts.Media.SetEnabled(pion.RTPCodecTypeAudio, enabled)
}

// SetVideoEnabled toggles the local camera.
func (a *Adapter) SetVideoEnabled(enabled bool) {
	a.opts.Media.SetEnabled(pion.RTPCodecTypeVideo, enabled)
}

// MediaState returns the local media toggles.
func (a *Adapter) MediaState() MediaState {
	return MediaState{
		Audio: a.opts.Media.Enabled(pion.RTPCodecTypeAudio),
		Video: a.opts.Media.Enabled(pion.RTPCodecTypeVideo),
	}
}

func (a *Adapter) post(ev event) {
	select {
	case a.events <- ev:
	case <-a.done:
	}
}

// Run joins the room and processes events until the call ends. It returns
// nil when the call ends through Leave or ctx, and the cause otherwise.
// Local media, the peer connection and the signaling connection are
// released on every path.
func (a *Adapter) Run(ctx context.Context) (err error) {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return ErrAlreadyStarted
	}
	a.started = true
	a.mu.Unlock()

	defer close(a.done)
	defer a.cleanup()
	defer func() {
		if err != nil {
			a.log.Warn("Call ended", "state", a.state, "error", err)
		} else {
			a.log.Info("Call ended", "state", a.state)
		}
	}()

	if err := a.start(ctx); err != nil {
		return err
	}
	return a.loop(ctx)
}

func (a *Adapter) start(ctx context.Context) error {
	tracks, err := a.opts.Media.Acquire(ctx)
	if err != nil {
		if !errors.Is(err, ErrMediaDenied) {
			err = WrapError("acquire media", ErrMediaDenied, err.Error())
		}
		return err
	}

	pc, err := a.opts.NewPeerConnection()
	if err != nil {
		return NewError("create peer connection", err)
	}
	a.pc = pc

	for _, t := range tracks {
		if _, err := pc.AddTrack(t); err != nil {
			return NewError("add track", err)
		}
	}
	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		a.post(localCandidate{init: c.ToJSON()})
	})
	pc.OnConnectionStateChange(func(s pion.PeerConnectionState) {
		a.post(peerState{state: s})
	})

	sig, err := a.opts.Dial(ctx)
	if err != nil {
		return NewError("connect to server", err)
	}
	a.sig = sig

	if err := a.send(protocol.TypeJoin, protocol.JoinBody{Room: a.opts.Room, ID: a.opts.ID}); err != nil {
		return err
	}
	a.setState(StateJoining)
	return nil
}

func (a *Adapter) loop(ctx context.Context) error {
	incoming := a.sig.Incoming()
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-a.leave:
			return nil

		case msg, ok := <-incoming:
			if !ok {
				if err := a.sig.Err(); err != nil {
					return WrapError("signaling", ErrSignalingLost, err.Error())
				}
				return NewError("signaling", ErrSignalingLost)
			}
			if err := a.handleMessage(msg); err != nil {
				return err
			}

		case ev := <-a.events:
			if err := a.handleEvent(ev); err != nil {
				return err
			}
		}
	}
}

func (a *Adapter) handleEvent(ev event) error {
	switch ev := ev.(type) {
	case localCandidate:
		// Forwarded immediately regardless of negotiation progress.
		raw, err := json.Marshal(ev.init)
		if err != nil {
			return NewError("encode ICE candidate", err)
		}
		return a.send(protocol.TypeSendICECandidate, protocol.SignalBody{
			Room:      a.opts.Room,
			ID:        a.opts.ID,
			Candidate: raw,
		})

	case peerState:
		if a.opts.OnPeerConnectionState != nil {
			a.opts.OnPeerConnectionState(ev.state)
		}
		a.log.Debug("Peer connection state", "state", ev.state)
		if ev.state == pion.PeerConnectionStateFailed {
			return NewError("peer connection", ErrConnectionFailed)
		}

	case hangup:
		if a.state == StateNegotiating || a.state == StateConnected {
			return NewError("call", ErrPeerLeft)
		}
	}
	return nil
}

func (a *Adapter) handleMessage(msg *protocol.Message) error {
	ev, err := sigclient.Decode(msg)
	if err != nil {
		a.log.Warn("Dropping signaling message", "type", msg.Type, "error", err)
		return nil
	}

	switch ev := ev.(type) {
	case sigclient.Joined:
		return a.onJoined(ev)
	case sigclient.Left:
		return a.onLeft(ev)
	case sigclient.Offer:
		return a.onOffer(ev)
	case sigclient.Answer:
		return a.onAnswer(ev)
	case sigclient.Candidate:
		return a.onCandidate(ev)
	case sigclient.ServerError:
		return a.onServerError(ev)
	}
	return nil
}

func (a *Adapter) onJoined(ev sigclient.Joined) error {
	if ev.Room != a.opts.Room || !slices.Contains(ev.Members, a.opts.ID) {
		a.log.Debug("Ignoring roster for another room or participant", "roster_room", ev.Room)
		return nil
	}

	switch a.state {
	case StateJoining:
		if len(ev.Members) > 1 && (ev.Initiator == "" || ev.Initiator == a.opts.ID) {
			return a.offer()
		}
		a.setState(StateWaitingForPeer)

	case StateWaitingForPeer:
		// The relay names the newest joiner as initiator; the member that
		// was already waiting stays passive until the offer arrives.
		if len(ev.Members) > 1 && ev.Initiator == a.opts.ID {
			return a.offer()
		}

	default:
		a.log.Debug("Ignoring roster update", "state", a.state, "members", len(ev.Members))
	}
	return nil
}

func (a *Adapter) onLeft(ev sigclient.Left) error {
	if ev.ID == a.opts.ID {
		return nil
	}
	switch a.state {
	case StateNegotiating, StateConnected:
		return WrapError("call", ErrPeerLeft, ev.ID)
	}
	return nil
}

// offer moves to negotiating and sends the local offer.
func (a *Adapter) offer() error {
	a.setState(StateNegotiating)
	a.negotiation = NegotiationOfferPending

	offer, err := a.pc.CreateOffer(nil)
	if err != nil {
		return WrapError("create offer", ErrNegotiation, err.Error())
	}
	if err := a.pc.SetLocalDescription(offer); err != nil {
		return WrapError("set local description", ErrNegotiation, err.Error())
	}

	raw, err := json.Marshal(offer)
	if err != nil {
		return NewError("encode offer", err)
	}
	if err := a.send(protocol.TypeSendOffer, protocol.SignalBody{Room: a.opts.Room, ID: a.opts.ID, SDP: raw}); err != nil {
		return err
	}
	a.negotiation = NegotiationAwaitingAnswer
	return nil
}

func (a *Adapter) onOffer(ev sigclient.Offer) error {
	if a.state != StateWaitingForPeer {
		// A second offer while one is in flight has no defined meaning.
		a.log.Warn("Dropping unexpected offer", "state", a.state, "from", ev.From)
		return nil
	}

	desc, err := parseSDP(ev.SDP, pion.SDPTypeOffer)
	if err != nil {
		return err
	}
	if err := a.setRemote(desc); err != nil {
		return err
	}

	answer, err := a.pc.CreateAnswer(nil)
	if err != nil {
		return WrapError("create answer", ErrNegotiation, err.Error())
	}
	if err := a.pc.SetLocalDescription(answer); err != nil {
		return WrapError("set local description", ErrNegotiation, err.Error())
	}

	raw, err := json.Marshal(answer)
	if err != nil {
		return NewError("encode answer", err)
	}
	if err := a.send(protocol.TypeSendAnswer, protocol.SignalBody{Room: a.opts.Room, ID: a.opts.ID, SDP: raw}); err != nil {
		return err
	}
	a.negotiation = NegotiationAnswerSent
	a.connected()
	return nil
}

func (a *Adapter) onAnswer(ev sigclient.Answer) error {
	if a.state != StateNegotiating || a.negotiation != NegotiationAwaitingAnswer {
		a.log.Warn("Dropping unexpected answer", "state", a.state, "from", ev.From)
		return nil
	}

	desc, err := parseSDP(ev.SDP, pion.SDPTypeAnswer)
	if err != nil {
		return err
	}
	if err := a.setRemote(desc); err != nil {
		return err
	}
	a.connected()
	return nil
}

func (a *Adapter) connected() {
	a.negotiation = NegotiationConnected
	a.setState(StateConnected)
}

// setRemote applies the remote description and flushes candidates that
// arrived before it, in arrival order.
func (a *Adapter) setRemote(desc pion.SessionDescription) error {
	if err := a.pc.SetRemoteDescription(desc); err != nil {
		return WrapError("set remote description", ErrNegotiation, err.Error())
	}
	a.remoteSet = true

	pending := a.pending
	a.pending = nil
	for _, c := range pending {
		if err := a.pc.AddICECandidate(c); err != nil {
			a.log.Warn("Dropping queued ICE candidate", "error", err)
		}
	}
	return nil
}

func (a *Adapter) onCandidate(ev sigclient.Candidate) error {
	c, err := parseCandidate(ev.Candidate)
	if err != nil {
		a.log.Warn("Dropping ICE candidate", "from", ev.From, "error", err)
		return nil
	}
	if !a.remoteSet {
		if len(a.pending) >= maxPendingCandidates {
			a.log.Warn("Dropping ICE candidate, queue full", "from", ev.From, "queued", len(a.pending))
			return nil
		}
		a.pending = append(a.pending, c)
		return nil
	}
	if err := a.pc.AddICECandidate(c); err != nil {
		a.log.Warn("Dropping ICE candidate", "from", ev.From, "error", err)
	}
	return nil
}

func (a *Adapter) onServerError(ev sigclient.ServerError) error {
	if a.state == StateJoining || ev.Code == protocol.CodeDuplicateParticipant {
		return WrapError("join room", ErrSignalingError, ev.Error())
	}
	a.log.Warn("Relay rejected a message", "code", ev.Code, "message", ev.Message)
	return nil
}

func (a *Adapter) send(t string, body any) error {
	msg, err := protocol.New(t, body)
	if err != nil {
		return NewError("encode "+t, err)
	}
	if err := a.sig.Send(msg); err != nil {
		return WrapError("send "+t, ErrSignalingLost, err.Error())
	}
	return nil
}

func (a *Adapter) setState(s State) {
	if a.state == s {
		return
	}
	a.log.Debug("State change", "from", a.state, "to", s)
	a.state = s

	a.mu.Lock()
	a.snapshotSt = s
	a.mu.Unlock()

	if a.opts.OnStateChange != nil {
		a.opts.OnStateChange(s)
	}
}

// cleanup releases everything the call holds.
func (a *Adapter) cleanup() {
	if a.sig != nil && a.state != StateIdle {
		// Best effort; the relay also cleans up when the socket closes.
		_ = a.send(protocol.TypeLeave, protocol.JoinBody{Room: a.opts.Room, ID: a.opts.ID})
	}

	a.opts.Media.Stop()
	if a.pc != nil {
		if err := a.pc.Close(); err != nil {
			a.log.Debug("Closing peer connection", "error", err)
		}
	}
	if a.sig != nil {
		a.sig.Close()
	}
	a.pending = nil
	a.setState(StateClosed)
}

// String implements fmt.Stringer for logs.
func (a *Adapter) String() string {
	return fmt.Sprintf("call %s/%s", a.opts.Room, a.opts.ID)
}
