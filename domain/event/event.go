package event

import "waitroom/domain"

type Type string

// Room lifecycle events mirror the outbound wire message ids so that
// a subscriber can be matched one-to-one with what clients observe.
const (
	RoomCreatedType Type = "ROOM_CREATED"
	RoomJoinedType  Type = "ROOM_JOINED"
	RoomExitedType  Type = "ROOM_EXITED"
	RoomReadyType   Type = "ROOM_READY"
	RoomErrorType   Type = "ROOM_ERROR"
)

// Transport-level events.
const (
	MessageReceivedType Type = "WS_MSG"
	MessageDecodedType  Type = "WS_MSG_JSON"
	TransportErrorType  Type = "WS_ERROR"
)

// Event is the envelope published on the bus. Payload holds one of
// the typed structs below, matching Type.
type Event struct {
	Type    Type
	Payload any
}

// Actor identifies the member whose request produced an event.
type Actor struct {
	ID   string
	Name string
}

type RoomCreated struct {
	Room   domain.RoomSnapshot
	Author Actor
}

type RoomJoined struct {
	Room   domain.RoomSnapshot
	Member Actor
}

type RoomExited struct {
	// Room is the state after the member left; the zero value means
	// the room was deleted because it became empty.
	Room   domain.RoomSnapshot
	Member Actor
}

type RoomReady struct {
	Room domain.RoomSnapshot
}

type RoomError struct {
	ClientID string
	Err      string
}

// MessageReceived carries a raw inbound frame before any decoding.
type MessageReceived struct {
	ClientID string
	Raw      string
}

// MessageDecoded is published once an inbound frame parsed as an
// envelope, before dispatch. Unknown msg ids still produce it.
type MessageDecoded struct {
	ClientID string
	MsgID    string
}

type TransportError struct {
	ClientID string
	Err      string
}
