package signaling

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/faizanamer123/openassign-call/internal/protocol"
)

// Session is the router's view of one connection. It is owned by the
// connection's read loop: Handle and Disconnect for a given session must
// be called from a single goroutine.
type Session struct {
	// ID identifies the connection in logs. It is not a participant id.
	ID string

	Conn Conn

	participant string
	room        string
	limiter     *rate.Limiter
}

// Participant returns the participant id and room the session joined, if
// any.
func (s *Session) Participant() (id, room string, ok bool) {
	return s.participant, s.room, s.participant != ""
}

// RouterOptions tunes a Router. Zero values mean no limit.
type RouterOptions struct {
	// MessageRate is the sustained number of inbound messages per second
	// accepted from one connection.
	MessageRate float64

	// MessageBurst is the number of messages a connection may send in a
	// burst above MessageRate.
	MessageBurst int

	Logger *slog.Logger
}

// Router relays signaling messages between the members of a room. It
// never inspects SDP or candidate payloads.
type Router struct {
	registry *Registry
	opts     RouterOptions
	log      *slog.Logger

	mu       sync.Mutex
	sessions map[*Session]struct{}
	closed   bool
}

// NewRouter creates a router over the given registry.
func NewRouter(registry *Registry, opts RouterOptions) *Router {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		registry: registry,
		opts:     opts,
		log:      log,
		sessions: make(map[*Session]struct{}),
	}
}

// Registry returns the registry the router routes over.
func (rt *Router) Registry() *Registry {
	return rt.registry
}

// Connect starts tracking a new connection. The returned session must be
// passed to Disconnect when the connection ends.
func (rt *Router) Connect(id string, conn Conn) (*Session, error) {
	s := &Session{ID: id, Conn: conn}
	if rt.opts.MessageRate > 0 {
		burst := max(rt.opts.MessageBurst, 1)
		s.limiter = rate.NewLimiter(rate.Limit(rt.opts.MessageRate), burst)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed {
		return nil, errors.New("router closed")
	}
	rt.sessions[s] = struct{}{}
	rt.log.Debug("Connection opened", "conn", id)
	return s, nil
}

// Handle processes one inbound message. Rejected messages are dropped and
// reported to the sender with an error message; the room is unaffected.
func (rt *Router) Handle(s *Session, msg *protocol.Message) {
	err := rt.handle(s, msg)
	if err == nil {
		return
	}

	rt.log.Warn("Message rejected", "conn", s.ID, "type", msg.Type, "error", err)
	s.Conn.Send(protocol.MustNew(protocol.TypeError, protocol.ErrorBody{
		Code:    errorCode(err),
		Message: err.Error(),
	}))
	if fatal(err) {
		s.Conn.Close()
	}
}

func (rt *Router) handle(s *Session, msg *protocol.Message) error {
	if s.limiter != nil && !s.limiter.Allow() {
		return ErrRateLimited
	}

	switch msg.Type {
	case protocol.TypeJoin:
		return rt.join(s, msg)

	case protocol.TypeLeave:
		if s.participant == "" {
			return fmt.Errorf("leave: %w", ErrNotAMember)
		}
		var body protocol.JoinBody
		if len(msg.Body) > 0 {
			if err := msg.Decode(&body); err != nil {
				return fmt.Errorf("%w: %v", ErrBadRequest, err)
			}
		}
		if err := s.checkSender(body.Room, body.ID); err != nil {
			return fmt.Errorf("leave: %w", err)
		}
		rt.leave(s)
		return nil

	case protocol.TypeSendOffer, protocol.TypeSendAnswer, protocol.TypeSendICECandidate:
		return rt.relay(s, msg)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}
}

// checkSender verifies that the ids claimed in a message body belong to
// the session. Empty claims default to the session's own registration.
func (s *Session) checkSender(room, id string) error {
	if s.participant == "" {
		return ErrNotAMember
	}
	if room != "" && room != s.room {
		return fmt.Errorf("%w: %q", ErrNotAMember, room)
	}
	if id != "" && id != s.participant {
		return fmt.Errorf("%w: %q is not this connection's participant", ErrNotAMember, id)
	}
	return nil
}

func (rt *Router) join(s *Session, msg *protocol.Message) error {
	if s.participant != "" {
		return fmt.Errorf("join: %w as %q in %q", ErrAlreadyJoined, s.participant, s.room)
	}

	var body protocol.JoinBody
	if err := msg.Decode(&body); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if body.Room == "" || body.ID == "" {
		return fmt.Errorf("%w: join needs room and id", ErrBadRequest)
	}

	_, err := rt.registry.Register(body.ID, body.Room, s.Conn, func(snap RoomSnapshot) {
		joined := protocol.MustNew(protocol.TypeJoined, protocol.JoinedBody{
			Room:      snap.Name,
			Members:   snap.Members,
			Initiator: snap.Initiator,
		})
		for _, p := range rt.registry.resolve(snap) {
			rt.deliver(p, joined)
		}
	})
	if err != nil {
		return err
	}

	s.participant = body.ID
	s.room = body.Room
	rt.log.Info("Participant joined", "conn", s.ID, "room", body.Room, "participant", body.ID)
	return nil
}

func (rt *Router) relay(s *Session, msg *protocol.Message) error {
	relayed, _ := protocol.RelayedType(msg.Type)

	var body protocol.SignalBody
	if err := msg.Decode(&body); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if err := s.checkSender(body.Room, body.ID); err != nil {
		return fmt.Errorf("%s: %w", msg.Type, err)
	}

	out, err := protocol.NewRelay(relayed, s.participant, body.SDP, body.Candidate)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	snap, err := rt.registry.Rooms().Snapshot(s.room)
	if err != nil {
		return err
	}

	delivered := 0
	for _, p := range rt.registry.resolve(snap) {
		if p.ID == s.participant {
			continue
		}
		rt.deliver(p, out)
		delivered++
	}
	rt.log.Debug("Relayed signal", "type", relayed, "room", s.room, "from", s.participant, "recipients", delivered)
	return nil
}

// deliver queues msg for p. A participant that cannot keep up is
// disconnected; its read loop then unregisters it.
func (rt *Router) deliver(p *Participant, msg *protocol.Message) {
	if !p.Conn.Send(msg) {
		rt.log.Warn("Dropping slow participant", "room", p.Room, "participant", p.ID)
		p.Conn.Close()
	}
}

func (rt *Router) leave(s *Session) {
	id, room := s.participant, s.room
	s.participant, s.room = "", ""

	removed := rt.registry.Unregister(id, func(p *Participant, snap RoomSnapshot) {
		if snap.Size() == 0 {
			rt.log.Info("Room deleted", "room", room)
			return
		}
		left := protocol.MustNew(protocol.TypeLeft, protocol.LeftBody{
			Room:    snap.Name,
			ID:      p.ID,
			Members: snap.Members,
		})
		for _, other := range rt.registry.resolve(snap) {
			rt.deliver(other, left)
		}
	})
	if removed {
		rt.log.Info("Participant left", "room", room, "participant", id)
	}
}

// Disconnect unregisters the session's participant, if any, and stops
// tracking the connection. Calling it more than once is a no-op.
func (rt *Router) Disconnect(s *Session) {
	if s.participant != "" {
		rt.leave(s)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if _, ok := rt.sessions[s]; ok {
		delete(rt.sessions, s)
		rt.log.Debug("Connection closed", "conn", s.ID)
	}
}

// Connections returns the number of open connections.
func (rt *Router) Connections() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.sessions)
}

// Close closes every tracked connection and rejects new ones. Each
// connection's read loop performs its own Disconnect.
func (rt *Router) Close() {
	rt.mu.Lock()
	rt.closed = true
	conns := make([]Conn, 0, len(rt.sessions))
	for s := range rt.sessions {
		conns = append(conns, s.Conn)
	}
	rt.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
