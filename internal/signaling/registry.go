package signaling

import (
	"fmt"
	"time"

	"github.com/go4org/hashtriemap"

	"github.com/faizanamer123/openassign-call/internal/protocol"
)

// Conn is the live channel to one participant.
type Conn interface {
	// Send queues msg for delivery. It reports false if the connection is
	// closed or cannot keep up.
	Send(msg *protocol.Message) bool

	// Close terminates the connection. It is safe to call more than once.
	Close()
}

// Participant is a connection attached to a room.
type Participant struct {
	ID       string
	Room     string
	Conn     Conn
	JoinedAt time.Time
}

// Registry tracks which participants are attached to which room and owns
// their connection handles.
type Registry struct {
	participants hashtriemap.HashTrieMap[string, *Participant]
	rooms        *Rooms
}

// NewRegistry creates a registry backed by the given room manager.
func NewRegistry(rooms *Rooms) *Registry {
	return &Registry{rooms: rooms}
}

// Rooms returns the room manager behind the registry.
func (r *Registry) Rooms() *Rooms {
	return r.rooms
}

// Register attaches participantID to roomName. It fails with
// ErrDuplicateParticipant if the id is already registered in any room.
// notify observes the room snapshot produced by the join.
func (r *Registry) Register(participantID, roomName string, conn Conn, notify func(RoomSnapshot)) (RoomSnapshot, error) {
	p := &Participant{
		ID:       participantID,
		Room:     roomName,
		Conn:     conn,
		JoinedAt: time.Now(),
	}
	if _, loaded := r.participants.LoadOrStore(participantID, p); loaded {
		return RoomSnapshot{}, fmt.Errorf("register %q: %w", participantID, ErrDuplicateParticipant)
	}

	snap, err := r.rooms.JoinOrCreate(roomName, participantID, notify)
	if err != nil {
		r.participants.Delete(participantID)
		return RoomSnapshot{}, err
	}
	return snap, nil
}

// Unregister detaches participantID and removes it from its room. Unknown
// ids are ignored, so calling it twice is harmless. notify observes the
// remaining membership.
func (r *Registry) Unregister(participantID string, notify func(*Participant, RoomSnapshot)) bool {
	p, ok := r.participants.LoadAndDelete(participantID)
	if !ok {
		return false
	}

	r.rooms.Leave(p.Room, p.ID, func(snap RoomSnapshot) {
		if notify != nil {
			notify(p, snap)
		}
	})
	return true
}

// Lookup returns the participants of roomName in join order.
func (r *Registry) Lookup(roomName string) []*Participant {
	snap, err := r.rooms.Snapshot(roomName)
	if err != nil {
		return nil
	}
	return r.resolve(snap)
}

func (r *Registry) resolve(snap RoomSnapshot) []*Participant {
	out := make([]*Participant, 0, len(snap.Members))
	for _, id := range snap.Members {
		if p, ok := r.participants.Load(id); ok {
			out = append(out, p)
		}
	}
	return out
}

// ConnectionFor returns the connection registered for participantID.
func (r *Registry) ConnectionFor(participantID string) (Conn, error) {
	p, ok := r.participants.Load(participantID)
	if !ok {
		return nil, fmt.Errorf("connection for %q: %w", participantID, ErrParticipantNotFound)
	}
	return p.Conn, nil
}

// Participant returns the registration for participantID.
func (r *Registry) Participant(participantID string) (*Participant, bool) {
	return r.participants.Load(participantID)
}

// All returns every registered participant in no particular order.
func (r *Registry) All() []*Participant {
	var out []*Participant
	r.participants.Range(func(_ string, p *Participant) bool {
		out = append(out, p)
		return true
	})
	return out
}
