// Package domain contains core concepts of the waiting-room system.
// Rooms, members and sessions are pure data; no network or runtime
// logic should be added here.
package domain

import "github.com/samber/lo"

// Member is a connection's participation record inside a room.
// The member id matches the owning connection's id; the connection
// itself is held by the registry, never by the domain.
type Member struct {
	ID   string
	Name string
}

// Room is a capacity-bounded group of members.
// Members keep their join order; the order only matters for display.
type Room struct {
	ID       string
	Name     string
	Capacity int
	Members  []Member
}

func NewRoom(id, name string, capacity int) *Room {
	return &Room{
		ID:       id,
		Name:     name,
		Capacity: capacity,
		Members:  nil,
	}
}

// Full reports whether the room reached its capacity.
func (r *Room) Full() bool {
	return len(r.Members) >= r.Capacity
}

// Remaining returns the number of places left.
func (r *Room) Remaining() int {
	return r.Capacity - len(r.Members)
}

// Snapshot returns the outward-facing view of the room.
// It is a deep copy: mutating the snapshot never touches the room,
// and no connection reference can leak through it.
func (r *Room) Snapshot() RoomSnapshot {
	return RoomSnapshot{
		ID:   r.ID,
		Name: r.Name,
		Size: r.Capacity,
		Clients: lo.Map(r.Members, func(m Member, _ int) MemberInfo {
			return MemberInfo{ID: m.ID, Name: m.Name}
		}),
	}
}

// MemberInfo is the wire-safe projection of a Member.
type MemberInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RoomSnapshot is the only room shape allowed to cross the registry
// boundary. Size is the room capacity, Clients the current members in
// join order.
type RoomSnapshot struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Size    int          `json:"size"`
	Clients []MemberInfo `json:"clients"`
}

// Occupancy returns the current member count of the snapshot.
func (s RoomSnapshot) Occupancy() int {
	return len(s.Clients)
}
