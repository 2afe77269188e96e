package signaling

import (
	"sync"

	"github.com/google/uuid"
)

// Registry is the authoritative in-memory record of which user is in which
// room, for exactly one server process. Room state is never shared across
// instances: multiple servers would each see a disjoint set of rooms.
//
// Rooms are created implicitly on first join and deleted as soon as their
// member set becomes empty, either on the last leave or by Sweep.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]map[uuid.UUID]struct{}
	byUser map[uuid.UUID]string
}

// NewRegistry creates an empty room registry
func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]map[uuid.UUID]struct{}),
		byUser: make(map[uuid.UUID]string),
	}
}

// Join adds a user to a room, creating the room if absent. A user belongs to
// at most one room at a time: joining while a member elsewhere leaves the old
// room first. Returns the room that was left, or "" if none. Idempotent if
// the user is already a member of the given room.
func (r *Registry) Join(room string, userID uuid.UUID) (left string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byUser[userID]; ok && prev != room {
		r.leaveLocked(prev, userID)
		left = prev
	}

	if r.rooms[room] == nil {
		r.rooms[room] = make(map[uuid.UUID]struct{})
	}
	r.rooms[room][userID] = struct{}{}
	r.byUser[userID] = room

	return left
}

// Leave removes a user from a room and reports whether membership was
// actually removed. Leaving a room the user is not a member of is a no-op,
// not an error.
func (r *Registry) Leave(room string, userID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(room, userID)
}

func (r *Registry) leaveLocked(room string, userID uuid.UUID) bool {
	members, ok := r.rooms[room]
	if !ok {
		return false
	}
	if _, ok := members[userID]; !ok {
		return false
	}

	delete(members, userID)
	delete(r.byUser, userID)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
	return true
}

// MembersOf returns a snapshot of the room's member set, empty if the room
// does not exist
func (r *Registry) MembersOf(room string) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]uuid.UUID, 0, len(r.rooms[room]))
	for userID := range r.rooms[room] {
		members = append(members, userID)
	}
	return members
}

// MemberCount returns the number of users currently in a room
func (r *Registry) MemberCount(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

// RoomOf returns the room a user is currently in, if any. This inverse
// mapping is what lets the disconnect path reclaim membership without an
// explicit leave-room message.
func (r *Registry) RoomOf(userID uuid.UUID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.byUser[userID]
	return room, ok
}

// Rooms returns the identifiers of all rooms currently known
func (r *Registry) Rooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]string, 0, len(r.rooms))
	for room := range r.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// Sweep deletes every room whose member set is empty and returns how many
// were removed. Rooms are already deleted on the last leave; Sweep catches
// rooms leaked by a missed disconnect. Safe to run redundantly, never touches
// an occupied room.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for room, members := range r.rooms {
		if len(members) == 0 {
			delete(r.rooms, room)
			removed++
		}
	}
	return removed
}
