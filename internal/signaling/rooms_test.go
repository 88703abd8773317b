package signaling

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinOrCreateKeepsJoinOrder(t *testing.T) {
	rooms := NewRooms()

	snap, err := rooms.JoinOrCreate("r", "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, snap.Members)
	assert.Empty(t, snap.Initiator)

	snap, err = rooms.JoinOrCreate("r", "bob", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, snap.Members)
	assert.Equal(t, "bob", snap.Initiator)
	assert.Equal(t, 2, snap.Size())
	assert.Equal(t, 1, rooms.Len())
}

func TestJoinOrCreateRejectsDuplicate(t *testing.T) {
	rooms := NewRooms()
	_, err := rooms.JoinOrCreate("r", "alice", nil)
	require.NoError(t, err)

	_, err = rooms.JoinOrCreate("r", "alice", nil)
	assert.ErrorIs(t, err, ErrDuplicateParticipant)

	snap, err := rooms.Snapshot("r")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, snap.Members)
}

func TestJoinOrCreateRejectsEmptyNames(t *testing.T) {
	rooms := NewRooms()
	_, err := rooms.JoinOrCreate("", "alice", nil)
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = rooms.JoinOrCreate("r", "", nil)
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.Zero(t, rooms.Len())
}

func TestLeaveDeletesEmptyRoom(t *testing.T) {
	rooms := NewRooms()
	_, _ = rooms.JoinOrCreate("r", "alice", nil)
	_, _ = rooms.JoinOrCreate("r", "bob", nil)

	var seen []RoomSnapshot
	notify := func(s RoomSnapshot) { seen = append(seen, s) }

	assert.True(t, rooms.Leave("r", "alice", notify))
	snap, err := rooms.Snapshot("r")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, snap.Members)

	assert.True(t, rooms.Leave("r", "bob", notify))
	_, err = rooms.Snapshot("r")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.Zero(t, rooms.Len())

	require.Len(t, seen, 2)
	assert.Equal(t, []string{"bob"}, seen[0].Members)
	assert.Zero(t, seen[1].Size())
}

func TestLeaveIsIdempotent(t *testing.T) {
	rooms := NewRooms()
	_, _ = rooms.JoinOrCreate("r", "alice", nil)
	_, _ = rooms.JoinOrCreate("r", "bob", nil)

	assert.True(t, rooms.Leave("r", "alice", nil))
	assert.False(t, rooms.Leave("r", "alice", nil))
	assert.False(t, rooms.Leave("missing", "alice", nil))

	snap, err := rooms.Snapshot("r")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, snap.Members)
}

func TestRoomRecreatedAfterDeletion(t *testing.T) {
	rooms := NewRooms()
	_, _ = rooms.JoinOrCreate("r", "alice", nil)
	rooms.Leave("r", "alice", nil)

	snap, err := rooms.JoinOrCreate("r", "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, snap.Members)
}

func TestStatsSortedByName(t *testing.T) {
	rooms := NewRooms()
	_, _ = rooms.JoinOrCreate("zulu", "a", nil)
	_, _ = rooms.JoinOrCreate("alpha", "b", nil)
	_, _ = rooms.JoinOrCreate("alpha", "c", nil)

	stats := rooms.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "alpha", stats[0].Name)
	assert.Equal(t, []string{"b", "c"}, stats[0].Members)
	assert.Equal(t, "zulu", stats[1].Name)
}

func TestConcurrentJoinLeave(t *testing.T) {
	rooms := NewRooms()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("p%d", i)
			for range 20 {
				_, err := rooms.JoinOrCreate("busy", id, nil)
				if assert.NoError(t, err) {
					rooms.Leave("busy", id, nil)
				}
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, rooms.Len())
	_, err := rooms.Snapshot("busy")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestConcurrentJoinsAllLand(t *testing.T) {
	rooms := NewRooms()

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := rooms.JoinOrCreate("crowd", fmt.Sprintf("p%d", i), nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := rooms.Snapshot("crowd")
	require.NoError(t, err)
	assert.Len(t, snap.Members, 100)
}
