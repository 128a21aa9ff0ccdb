package service

import (
	"sort"
	"sync"
)

// RoomRegistry tracks which connections are joined to which rooms.
type RoomRegistry struct {
	mu       sync.RWMutex
	rooms    map[string]map[string]struct{} // room -> handles
	byHandle map[string]map[string]struct{} // handle -> rooms
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms:    make(map[string]map[string]struct{}),
		byHandle: make(map[string]map[string]struct{}),
	}
}

// Join reports whether handle was newly added to the room.
func (r *RoomRegistry) Join(roomID, handle string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[roomID] = members
	}
	if _, already := members[handle]; already {
		return false
	}
	members[handle] = struct{}{}

	joined, ok := r.byHandle[handle]
	if !ok {
		joined = make(map[string]struct{})
		r.byHandle[handle] = joined
	}
	joined[roomID] = struct{}{}
	return true
}

// Leave reports whether handle was a member of the room.
func (r *RoomRegistry) Leave(roomID, handle string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leave(roomID, handle)
}

// LeaveAll removes handle from every room and returns the rooms it was in.
func (r *RoomRegistry) LeaveAll(handle string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := sortedKeys(r.byHandle[handle])
	for _, roomID := range rooms {
		r.leave(roomID, handle)
	}
	return rooms
}

func (r *RoomRegistry) Members(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.rooms[roomID])
}

func (r *RoomRegistry) RoomsOf(handle string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.byHandle[handle])
}

func (r *RoomRegistry) IsMember(roomID, handle string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID][handle]
	return ok
}

func (r *RoomRegistry) leave(roomID, handle string) bool {
	members, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := members[handle]; !ok {
		return false
	}

	delete(members, handle)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}

	joined := r.byHandle[handle]
	delete(joined, roomID)
	if len(joined) == 0 {
		delete(r.byHandle, handle)
	}
	return true
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
