package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCapacity = fmt.Errorf("can not create a room with an invalid size")
	ErrRoomNotFound    = fmt.Errorf("could not find the room")
	ErrRoomFull        = fmt.Errorf("the selected room is full")
	ErrAlreadyInRoom   = fmt.Errorf("already in a room")
	ErrNotInRoom       = fmt.Errorf("not in a room")
	ErrInvalidPayload  = fmt.Errorf("invalid message payload")
	ErrConnClosed      = fmt.Errorf("connection is closed")
)

// IsRoomError reports whether err belongs to the room domain taxonomy.
// Room errors are recovered at the dispatcher and answered with a
// ROOM_ERROR response; anything else is a protocol or transport failure.
func IsRoomError(err error) bool {
	return errors.Is(err, ErrInvalidCapacity) ||
		errors.Is(err, ErrRoomNotFound) ||
		errors.Is(err, ErrRoomFull) ||
		errors.Is(err, ErrAlreadyInRoom) ||
		errors.Is(err, ErrNotInRoom)
}
