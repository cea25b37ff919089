package event

import (
	"log/slog"
	"sync"

	"waitroom/errors"
)

// RoomActivityHandler handles room lifecycle events.
// It is triggered each time a room is created, joined, exited or
// becomes ready. Useful for updating observability metrics, logging,
// or telemetry.
type RoomActivityHandler struct {
	log     *slog.Logger
	mu      sync.Mutex
	counter *Counter
}

func NewRoomActivityHandler(log *slog.Logger, counter *Counter) *RoomActivityHandler {
	return &RoomActivityHandler{log: log, counter: counter}
}

func (h *RoomActivityHandler) Handle(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch event.Type {
	case RoomCreatedType:
		payload, ok := event.Payload.(RoomCreated)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(RoomCreatedType)
		h.log.Info("room created",
			"room_id", payload.Room.ID,
			"room_name", payload.Room.Name,
			"author_id", payload.Author.ID)
	case RoomJoinedType:
		payload, ok := event.Payload.(RoomJoined)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(RoomJoinedType)
		h.log.Info("room joined",
			"room_id", payload.Room.ID,
			"member_id", payload.Member.ID,
			"occupancy", payload.Room.Occupancy())
	case RoomExitedType:
		payload, ok := event.Payload.(RoomExited)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(RoomExitedType)
		h.log.Info("room exited",
			"room_id", payload.Room.ID,
			"member_id", payload.Member.ID)
	case RoomReadyType:
		payload, ok := event.Payload.(RoomReady)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(RoomReadyType)
		h.log.Info("room ready",
			"room_id", payload.Room.ID,
			"size", payload.Room.Size)
	}
}
