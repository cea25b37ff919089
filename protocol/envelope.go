// Package protocol defines the wire envelope exchanged with clients
// and the dispatcher that turns inbound messages into registry
// operations, responses and events.
package protocol

import "encoding/json"

// Inbound message ids.
const (
	MsgListRooms  = "LIST_ROOMS"
	MsgCreateRoom = "CREATE_ROOM"
	MsgJoinRoom   = "JOIN_ROOM"
	MsgExitRoom   = "EXIT_ROOM"
)

// Outbound message ids.
const (
	MsgRoomCreated = "ROOM_CREATED"
	MsgRoomJoined  = "ROOM_JOINED"
	MsgRoomExited  = "ROOM_EXITED"
	MsgRoomReady   = "ROOM_READY"
	MsgRoomError   = "ROOM_ERROR"
	MsgWSError     = "WS_ERROR"
)

// Envelope is the inbound wire frame: {"msgId": ..., "msg": {...}}.
// Msg stays raw until the msg id selects the concrete payload type.
type Envelope struct {
	MsgID string          `json:"msgId"`
	Msg   json.RawMessage `json:"msg"`
}

// Decode parses a raw text frame into an envelope.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

type outboundEnvelope struct {
	MsgID string `json:"msgId"`
	Msg   any    `json:"msg"`
}

// Encode serializes an outbound frame. A nil payload is sent as an
// empty object, matching what clients expect for bodyless replies.
func Encode(msgID string, payload any) ([]byte, error) {
	if payload == nil {
		payload = struct{}{}
	}
	return json.Marshal(outboundEnvelope{MsgID: msgID, Msg: payload})
}

// CreateRoomRequest asks for a new room. Capacity is validated before
// any registry mutation happens.
type CreateRoomRequest struct {
	Capacity    int    `json:"roomSize" validate:"gt=0"`
	Name        string `json:"roomName"`
	DisplayName string `json:"clientName"`
}

// JoinRoomRequest asks to join an existing room. A blank display name
// gets a generated one.
type JoinRoomRequest struct {
	RoomID      string `json:"roomId" validate:"required"`
	DisplayName string `json:"clientName"`
}

// RoomRef is the acknowledgement body of ROOM_CREATED and ROOM_JOINED.
type RoomRef struct {
	RoomID string `json:"roomId"`
}

// ErrorResponse is the body of ROOM_ERROR and WS_ERROR replies.
type ErrorResponse struct {
	Error string `json:"error"`
}
