package signaling

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/go4org/hashtriemap"
)

// RoomSnapshot is an immutable copy of a room's membership.
type RoomSnapshot struct {
	Name string

	// Members in join order.
	Members []string

	// Initiator is the member expected to send the offer. It is the most
	// recent joiner once the room holds more than one member.
	Initiator string
}

// Size returns the number of members in the snapshot.
func (s RoomSnapshot) Size() int {
	return len(s.Members)
}

// room is a named group of participants. All fields are guarded by mu.
type room struct {
	mu      sync.Mutex
	name    string
	members []string

	// deleted is set once the room has been emptied and is about to be
	// removed from the index. Joiners that find a deleted room retry.
	deleted bool
}

func (r *room) snapshot() RoomSnapshot {
	s := RoomSnapshot{
		Name:    r.name,
		Members: slices.Clone(r.members),
	}
	if len(r.members) > 1 {
		s.Initiator = r.members[len(r.members)-1]
	}
	return s
}

// Rooms is the room lifecycle manager. Membership changes are serialized
// per room; distinct rooms never block each other.
type Rooms struct {
	index hashtriemap.HashTrieMap[string, *room]
}

// NewRooms creates an empty room index.
func NewRooms() *Rooms {
	return &Rooms{}
}

// JoinOrCreate appends participantID to the named room, creating the room
// if it does not exist, and returns the resulting snapshot. notify, if not
// nil, runs with the snapshot before any other membership change to the
// same room can happen.
func (rs *Rooms) JoinOrCreate(name, participantID string, notify func(RoomSnapshot)) (RoomSnapshot, error) {
	if name == "" || participantID == "" {
		return RoomSnapshot{}, fmt.Errorf("join %q as %q: %w", name, participantID, ErrBadRequest)
	}

	for {
		r, _ := rs.index.LoadOrStore(name, &room{name: name})

		r.mu.Lock()
		if r.deleted {
			// Lost the race against the last member leaving.
			r.mu.Unlock()
			continue
		}
		if slices.Contains(r.members, participantID) {
			r.mu.Unlock()
			return RoomSnapshot{}, fmt.Errorf("join %q as %q: %w", name, participantID, ErrDuplicateParticipant)
		}

		r.members = append(r.members, participantID)
		snap := r.snapshot()
		if notify != nil {
			notify(snap)
		}
		r.mu.Unlock()
		return snap, nil
	}
}

// Leave removes participantID from the named room and deletes the room
// once it is empty. It reports whether the participant was a member;
// leaving twice is a no-op. notify runs with the remaining membership,
// including when it is empty.
func (rs *Rooms) Leave(name, participantID string, notify func(RoomSnapshot)) bool {
	r, ok := rs.index.Load(name)
	if !ok {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.Index(r.members, participantID)
	if r.deleted || i < 0 {
		return false
	}
	r.members = slices.Delete(r.members, i, i+1)

	if len(r.members) == 0 {
		r.deleted = true
		rs.index.Delete(name)
	}
	if notify != nil {
		notify(r.snapshot())
	}
	return true
}

// Snapshot returns the current membership of the named room.
func (rs *Rooms) Snapshot(name string) (RoomSnapshot, error) {
	r, ok := rs.index.Load(name)
	if !ok {
		return RoomSnapshot{}, fmt.Errorf("room %q: %w", name, ErrRoomNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleted {
		return RoomSnapshot{}, fmt.Errorf("room %q: %w", name, ErrRoomNotFound)
	}
	return r.snapshot(), nil
}

// Stats returns a snapshot of every live room, sorted by name.
func (rs *Rooms) Stats() []RoomSnapshot {
	var out []RoomSnapshot
	rs.index.Range(func(_ string, r *room) bool {
		r.mu.Lock()
		if !r.deleted {
			out = append(out, r.snapshot())
		}
		r.mu.Unlock()
		return true
	})
	slices.SortFunc(out, func(a, b RoomSnapshot) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Len returns the number of live rooms.
func (rs *Rooms) Len() int {
	n := 0
	rs.index.Range(func(string, *room) bool {
		n++
		return true
	})
	return n
}
