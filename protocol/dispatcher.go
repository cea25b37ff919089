package protocol

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"waitroom/contract"
	"waitroom/domain"
	"waitroom/domain/event"
	"waitroom/errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// generatedNameLength is how much of a fresh uuid becomes a display
// name when the client did not pick one.
const generatedNameLength = 5

// Dispatcher translates inbound envelopes into registry operations,
// direct replies and bus events. It holds no per-connection state of
// its own; everything mutable lives in the Session handed to Handle,
// which is only ever touched from the connection's read goroutine.
type Dispatcher struct {
	log      *slog.Logger
	registry contract.IRegistry
	bus      *event.Bus
	validate *validator.Validate
}

func NewDispatcher(log *slog.Logger, registry contract.IRegistry, bus *event.Bus) *Dispatcher {
	return &Dispatcher{
		log:      log,
		registry: registry,
		bus:      bus,
		validate: validator.New(),
	}
}

// Handle processes one raw inbound frame from the connection behind
// sess. Every failure is recovered here: room-domain errors answer
// with ROOM_ERROR, anything else with WS_ERROR, and in both cases an
// event is published. Nothing propagates to the caller.
func (d *Dispatcher) Handle(sess *domain.Session, sender contract.Sender, raw []byte) {
	env, err := Decode(raw)
	if err != nil {
		d.fail(sess, sender, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err))
		return
	}
	d.bus.Publish(event.Event{Type: event.MessageDecodedType, Payload: event.MessageDecoded{
		ClientID: sess.ID,
		MsgID:    env.MsgID,
	}})

	switch env.MsgID {
	case MsgListRooms:
		err = d.listRooms(sess, sender)
	case MsgCreateRoom:
		err = d.createRoom(sess, sender, env.Msg)
	case MsgJoinRoom:
		err = d.joinRoom(sess, sender, env.Msg)
	case MsgExitRoom:
		err = d.exitRoom(sess, sender)
	default:
		// Unrecognized ids are ignored on purpose; clients relying on
		// the permissive dispatch of older servers keep working.
		d.log.Debug("ignoring unknown message id", "client_id", sess.ID, "msg_id", env.MsgID)
		return
	}

	if err != nil {
		d.fail(sess, sender, err)
	}
}

// Disconnect runs the close cleanup for a connection. It is safe to
// call for sessions that never joined a room. No reply is sent; the
// transport is already gone.
func (d *Dispatcher) Disconnect(sess *domain.Session) {
	if !sess.InRoom() {
		return
	}

	snapshot, err := d.registry.Exit(sess.RoomID, sess.ID)
	if err != nil {
		// The room may already be gone; cleanup must stay silent.
		d.log.Debug("close cleanup found no room", "client_id", sess.ID, "room_id", sess.RoomID)
		sess.Unbind()
		return
	}

	d.bus.Publish(event.Event{Type: event.RoomExitedType, Payload: event.RoomExited{
		Room:   snapshot,
		Member: event.Actor{ID: sess.ID, Name: sess.Name},
	}})
	d.log.Info("client left room on disconnect", "client_id", sess.ID, "room_id", sess.RoomID)
	sess.Unbind()
}

// Broadcast sends one message to every member of the room. Senders
// whose transport already closed are skipped; their own close cleanup
// may simply not have run yet.
func (d *Dispatcher) Broadcast(roomID, msgID string, payload any) {
	for _, sender := range d.registry.SendersFor(roomID) {
		if !sender.Ready() {
			continue
		}
		if err := sender.Send(msgID, payload); err != nil {
			d.log.Warn("broadcast send failed", "room_id", roomID, "client_id", sender.ID(), "error", err)
		}
	}
}

func (d *Dispatcher) listRooms(sess *domain.Session, sender contract.Sender) error {
	d.log.Info("client asked for rooms list", "client_id", sess.ID)
	return sender.Send(MsgListRooms, d.registry.List())
}

func (d *Dispatcher) createRoom(sess *domain.Session, sender contract.Sender, msg json.RawMessage) error {
	if sess.InRoom() {
		return fmt.Errorf("%w: can not create a room while in one", errors.ErrAlreadyInRoom)
	}

	var req CreateRoomRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	if err := d.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %d", errors.ErrInvalidCapacity, req.Capacity)
	}

	roomID, err := d.registry.Create(req.Capacity, req.Name)
	if err != nil {
		return err
	}
	d.log.Info("client created room", "client_id", sess.ID, "room_id", roomID)

	if err := sender.Send(MsgRoomCreated, RoomRef{RoomID: roomID}); err != nil {
		return err
	}

	snapshot, err := d.registry.Get(roomID)
	if err != nil {
		return err
	}
	d.bus.Publish(event.Event{Type: event.RoomCreatedType, Payload: event.RoomCreated{
		Room:   snapshot,
		Author: event.Actor{ID: sess.ID, Name: req.DisplayName},
	}})

	// Create implies auto-join for the creator.
	return d.join(sess, sender, roomID, req.DisplayName)
}

func (d *Dispatcher) joinRoom(sess *domain.Session, sender contract.Sender, msg json.RawMessage) error {
	var req JoinRoomRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	if err := d.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: missing roomId", errors.ErrRoomNotFound)
	}
	return d.join(sess, sender, req.RoomID, req.DisplayName)
}

func (d *Dispatcher) join(sess *domain.Session, sender contract.Sender, roomID, displayName string) error {
	if sess.InRoom() {
		return fmt.Errorf("%w: can not join a room while in one", errors.ErrAlreadyInRoom)
	}
	if displayName == "" {
		displayName = uuid.NewString()[:generatedNameLength]
	}

	snapshot, err := d.registry.Join(roomID, sess.ID, sender, displayName)
	if err != nil {
		return err
	}
	sess.Bind(roomID, displayName)
	d.log.Info("client joined room", "client_id", sess.ID, "room_id", roomID, "name", displayName)

	if err := sender.Send(MsgRoomJoined, RoomRef{RoomID: roomID}); err != nil {
		return err
	}
	d.bus.Publish(event.Event{Type: event.RoomJoinedType, Payload: event.RoomJoined{
		Room:   snapshot,
		Member: event.Actor{ID: sess.ID, Name: displayName},
	}})

	// The join that fills the room is the one that announces it.
	if snapshot.Occupancy() == snapshot.Size {
		d.Broadcast(roomID, MsgRoomReady, snapshot)
		d.bus.Publish(event.Event{Type: event.RoomReadyType, Payload: event.RoomReady{Room: snapshot}})
	}
	return nil
}

func (d *Dispatcher) exitRoom(sess *domain.Session, sender contract.Sender) error {
	if !sess.InRoom() {
		return fmt.Errorf("%w: can not exit a room without being in one", errors.ErrNotInRoom)
	}

	snapshot, err := d.registry.Exit(sess.RoomID, sess.ID)
	if err != nil {
		return err
	}
	d.log.Info("client exited room", "client_id", sess.ID, "room_id", sess.RoomID, "name", sess.Name)

	d.bus.Publish(event.Event{Type: event.RoomExitedType, Payload: event.RoomExited{
		Room:   snapshot,
		Member: event.Actor{ID: sess.ID, Name: sess.Name},
	}})
	sess.Unbind()

	return sender.Send(MsgRoomExited, nil)
}

// fail maps an error to its client-facing response and event. Room
// domain errors stay on the ROOM_ERROR channel; everything else is a
// protocol-level WS_ERROR.
func (d *Dispatcher) fail(sess *domain.Session, sender contract.Sender, err error) {
	d.log.Warn("request failed", "client_id", sess.ID, "error", err)

	msgID := MsgWSError
	eventType := event.TransportErrorType
	var payload any = event.TransportError{ClientID: sess.ID, Err: err.Error()}
	if errors.IsRoomError(err) {
		msgID = MsgRoomError
		eventType = event.RoomErrorType
		payload = event.RoomError{ClientID: sess.ID, Err: err.Error()}
	}

	if sendErr := sender.Send(msgID, ErrorResponse{Error: err.Error()}); sendErr != nil {
		d.log.Warn("could not deliver error response", "client_id", sess.ID, "error", sendErr)
	}
	d.bus.Publish(event.Event{Type: eventType, Payload: payload})
}
