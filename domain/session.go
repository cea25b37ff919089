package domain

// Session is the per-connection mutable state.
// The id is assigned once at connect time and never changes.
// RoomID is empty while the connection is unbound; it is set if and
// only if the connection is currently a member of that room in the
// registry. The dispatcher and the close cleanup both run on the
// connection's single read goroutine, so Session needs no lock.
type Session struct {
	ID     string
	RoomID string
	Name   string
}

func NewSession(id string) *Session {
	return &Session{ID: id}
}

// InRoom reports whether the session is bound to a room.
func (s *Session) InRoom() bool {
	return s.RoomID != ""
}

// Bind attaches the session to a room under the given display name.
func (s *Session) Bind(roomID, name string) {
	s.RoomID = roomID
	s.Name = name
}

// Unbind detaches the session from its current room.
func (s *Session) Unbind() {
	s.RoomID = ""
	s.Name = ""
}
