// Package registry owns the in-memory mapping from room id to room
// state. All access goes through its operations; nothing else may
// touch the room collection, which is what keeps the capacity and
// membership invariants intact.
package registry

import (
	"fmt"
	"sync"

	"waitroom/contract"
	"waitroom/domain"
	"waitroom/errors"

	"github.com/google/uuid"
)

const defaultRoomName = "No name"

// Registry maps room ids to rooms and member ids to their connection
// senders. Membership and senders are kept in separate maps so that
// room snapshots can never carry a connection reference outward.
//
// A single lock over both maps serializes mutating operations: the
// capacity check and the member append in Join are atomic with
// respect to concurrent joins on the same room. Expected load is low,
// so per-room locking would buy nothing.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]*domain.Room
	senders map[string]contract.Sender // member id -> connection
}

func New() *Registry {
	return &Registry{
		rooms:   make(map[string]*domain.Room),
		senders: make(map[string]contract.Sender),
	}
}

// List returns a deep snapshot of every room, keyed by room id.
func (r *Registry) List() map[string]domain.RoomSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]domain.RoomSnapshot, len(r.rooms))
	for id, room := range r.rooms {
		out[id] = room.Snapshot()
	}
	return out
}

// Get returns the snapshot of one room.
func (r *Registry) Get(roomID string) (domain.RoomSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return domain.RoomSnapshot{}, fmt.Errorf("%w: %s", errors.ErrRoomNotFound, roomID)
	}
	return room.Snapshot(), nil
}

// RemainingCapacity returns how many places are left in the room.
func (r *Registry) RemainingCapacity(roomID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", errors.ErrRoomNotFound, roomID)
	}
	return room.Remaining(), nil
}

// Create allocates an empty room with a fresh id and returns the id.
// Capacity must be strictly positive; a blank name gets a default.
func (r *Registry) Create(capacity int, name string) (string, error) {
	if capacity <= 0 {
		return "", fmt.Errorf("%w: %d", errors.ErrInvalidCapacity, capacity)
	}
	if name == "" {
		name = defaultRoomName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	roomID := uuid.NewString()
	r.rooms[roomID] = domain.NewRoom(roomID, name, capacity)
	return roomID, nil
}

// Join appends the member to the room and records its sender.
// The capacity check happens here, not at creation time: concurrent
// joins race for the last place and the loser must see ErrRoomFull.
// The post-join snapshot is returned so the caller can detect a room
// that just became full without a second racy lookup.
func (r *Registry) Join(roomID, memberID string, sender contract.Sender, memberName string) (domain.RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return domain.RoomSnapshot{}, fmt.Errorf("%w: %s", errors.ErrRoomNotFound, roomID)
	}
	if room.Full() {
		return domain.RoomSnapshot{}, fmt.Errorf("%w: %s", errors.ErrRoomFull, roomID)
	}

	room.Members = append(room.Members, domain.Member{ID: memberID, Name: memberName})
	r.senders[memberID] = sender
	return room.Snapshot(), nil
}

// Exit removes the member from the room. A member that is not in the
// room is silently tolerated, so exit stays safe to call from close
// cleanup paths that may run twice. The room is deleted once its last
// member left; the returned snapshot is the post-exit state, zero
// valued when the room is gone.
func (r *Registry) Exit(roomID, memberID string) (domain.RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return domain.RoomSnapshot{}, fmt.Errorf("%w: %s", errors.ErrRoomNotFound, roomID)
	}

	for i, member := range room.Members {
		if member.ID == memberID {
			room.Members = append(room.Members[:i], room.Members[i+1:]...)
			delete(r.senders, memberID)
			break
		}
	}

	if len(room.Members) == 0 {
		delete(r.rooms, roomID)
		return domain.RoomSnapshot{}, nil
	}
	return room.Snapshot(), nil
}

// SendersFor returns the connection senders of every member of the
// room, in join order. The slice is a copy; it stays valid while the
// registry mutates underneath.
func (r *Registry) SendersFor(roomID string) []contract.Sender {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}

	senders := make([]contract.Sender, 0, len(room.Members))
	for _, member := range room.Members {
		if sender, exists := r.senders[member.ID]; exists {
			senders = append(senders, sender)
		}
	}
	return senders
}
