package protocol

import (
	"log/slog"
	"sync"
	"testing"

	"waitroom/domain"
	"waitroom/domain/event"
	"waitroom/mocks"
	"waitroom/registry"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// recordingSender keeps every outbound message for assertions.
type recordingSender struct {
	id    string
	ready bool
	mu    sync.Mutex
	sent  []sentMessage
}

type sentMessage struct {
	msgID   string
	payload any
}

func newRecordingSender(id string) *recordingSender {
	return &recordingSender{id: id, ready: true}
}

func (s *recordingSender) ID() string  { return s.id }
func (s *recordingSender) Ready() bool { return s.ready }

func (s *recordingSender) Send(msgID string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{msgID: msgID, payload: payload})
	return nil
}

func (s *recordingSender) count(msgID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.sent {
		if m.msgID == msgID {
			n++
		}
	}
	return n
}

func (s *recordingSender) msgIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sent))
	for _, m := range s.sent {
		ids = append(ids, m.msgID)
	}
	return ids
}

func (s *recordingSender) lastPayload(msgID string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.sent) - 1; i >= 0; i-- {
		if s.sent[i].msgID == msgID {
			return s.sent[i].payload
		}
	}
	return nil
}

// captor records every event of the types it subscribes to.
type captor struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *captor) Handle(e event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captor) ofType(t event.Type) []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []event.Event
	for _, e := range c.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newTestDispatcher() (*Dispatcher, *registry.Registry, *event.Bus) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	reg := registry.New()
	bus := event.NewBus(log)
	return NewDispatcher(log, reg, bus), reg, bus
}

func frame(t *testing.T, msgID string, payload any) []byte {
	t.Helper()
	raw, err := Encode(msgID, payload)
	require.NoError(t, err)
	return raw
}

func createdRoomID(t *testing.T, sender *recordingSender) string {
	t.Helper()
	payload, ok := sender.lastPayload(MsgRoomCreated).(RoomRef)
	require.True(t, ok, "no ROOM_CREATED reply recorded")
	return payload.RoomID
}

func TestDispatcher_ListRooms_On_Empty_Registry(t *testing.T) {
	req := require.New(t)
	dispatcher, _, _ := newTestDispatcher()
	sess := domain.NewSession(uuid.NewString())
	sender := newRecordingSender(sess.ID)

	dispatcher.Handle(sess, sender, frame(t, MsgListRooms, nil))

	req.Equal([]string{MsgListRooms}, sender.msgIDs())
	rooms, ok := sender.lastPayload(MsgListRooms).(map[string]domain.RoomSnapshot)
	req.True(ok)
	req.Empty(rooms)
}

func TestDispatcher_CreateRoom_Auto_Joins_The_Creator(t *testing.T) {
	req := require.New(t)
	dispatcher, reg, bus := newTestDispatcher()
	capture := &captor{}
	bus.Subscribe(event.RoomCreatedType, capture)
	bus.Subscribe(event.RoomJoinedType, capture)

	sess := domain.NewSession(uuid.NewString())
	sender := newRecordingSender(sess.ID)

	// When a client creates a room
	dispatcher.Handle(sess, sender, frame(t, MsgCreateRoom, CreateRoomRequest{
		Capacity:    2,
		Name:        "Alpha",
		DisplayName: "Ada",
	}))

	// Then it is acknowledged and joined in one go
	req.Equal([]string{MsgRoomCreated, MsgRoomJoined}, sender.msgIDs())
	roomID := createdRoomID(t, sender)

	snapshot, err := reg.Get(roomID)
	req.NoError(err)
	req.Equal(1, snapshot.Occupancy())
	req.Equal("Ada", snapshot.Clients[0].Name)

	req.True(sess.InRoom())
	req.Equal(roomID, sess.RoomID)

	req.Len(capture.ofType(event.RoomCreatedType), 1)
	req.Len(capture.ofType(event.RoomJoinedType), 1)
}

func TestDispatcher_CreateRoom_With_Invalid_Capacity_Fails(t *testing.T) {
	req := require.New(t)
	dispatcher, reg, bus := newTestDispatcher()
	capture := &captor{}
	bus.Subscribe(event.RoomErrorType, capture)

	sess := domain.NewSession(uuid.NewString())
	sender := newRecordingSender(sess.ID)

	dispatcher.Handle(sess, sender, frame(t, MsgCreateRoom, CreateRoomRequest{Capacity: 0, Name: "Alpha"}))

	// The error goes back to the caller only, and nothing was created
	req.Equal([]string{MsgRoomError}, sender.msgIDs())
	req.Empty(reg.List())
	req.False(sess.InRoom())
	req.Len(capture.ofType(event.RoomErrorType), 1)
}

func TestDispatcher_CreateRoom_While_In_A_Room_Fails(t *testing.T) {
	req := require.New(t)
	dispatcher, reg, _ := newTestDispatcher()
	sess := domain.NewSession(uuid.NewString())
	sender := newRecordingSender(sess.ID)

	dispatcher.Handle(sess, sender, frame(t, MsgCreateRoom, CreateRoomRequest{Capacity: 2, Name: "Alpha"}))
	req.True(sess.InRoom())

	// When the same client creates a second room
	dispatcher.Handle(sess, sender, frame(t, MsgCreateRoom, CreateRoomRequest{Capacity: 2, Name: "Beta"}))

	// Then it is refused and only the first room exists
	req.Equal(1, sender.count(MsgRoomError))
	req.Len(reg.List(), 1)
}

func TestDispatcher_Join_Unknown_Room_Fails(t *testing.T) {
	req := require.New(t)
	dispatcher, _, _ := newTestDispatcher()
	sess := domain.NewSession(uuid.NewString())
	sender := newRecordingSender(sess.ID)

	dispatcher.Handle(sess, sender, frame(t, MsgJoinRoom, JoinRoomRequest{RoomID: uuid.NewString()}))

	req.Equal([]string{MsgRoomError}, sender.msgIDs())
	req.False(sess.InRoom())
}

func TestDispatcher_Filling_Join_Broadcasts_Room_Ready_Once(t *testing.T) {
	req := require.New(t)
	dispatcher, _, bus := newTestDispatcher()
	capture := &captor{}
	bus.Subscribe(event.RoomReadyType, capture)

	creator := domain.NewSession(uuid.NewString())
	creatorSender := newRecordingSender(creator.ID)
	dispatcher.Handle(creator, creatorSender, frame(t, MsgCreateRoom, CreateRoomRequest{Capacity: 2, Name: "Alpha"}))
	roomID := createdRoomID(t, creatorSender)

	// When the second member fills the room
	joiner := domain.NewSession(uuid.NewString())
	joinerSender := newRecordingSender(joiner.ID)
	dispatcher.Handle(joiner, joinerSender, frame(t, MsgJoinRoom, JoinRoomRequest{RoomID: roomID, DisplayName: "Eve"}))

	// Then every member is told the room is ready, exactly once
	req.Equal(1, creatorSender.count(MsgRoomReady))
	req.Equal(1, joinerSender.count(MsgRoomReady))
	readyEvents := capture.ofType(event.RoomReadyType)
	req.Len(readyEvents, 1)
	payload, ok := readyEvents[0].Payload.(event.RoomReady)
	req.True(ok)
	req.Equal(roomID, payload.Room.ID)
	req.Equal(2, payload.Room.Occupancy())
}

func TestDispatcher_Join_Full_Room_Fails(t *testing.T) {
	req := require.New(t)
	dispatcher, reg, _ := newTestDispatcher()

	creator := domain.NewSession(uuid.NewString())
	creatorSender := newRecordingSender(creator.ID)
	dispatcher.Handle(creator, creatorSender, frame(t, MsgCreateRoom, CreateRoomRequest{Capacity: 1, Name: "Alpha"}))
	roomID := createdRoomID(t, creatorSender)

	// When a client tries to join the already full room
	late := domain.NewSession(uuid.NewString())
	lateSender := newRecordingSender(late.ID)
	dispatcher.Handle(late, lateSender, frame(t, MsgJoinRoom, JoinRoomRequest{RoomID: roomID}))

	req.Equal([]string{MsgRoomError}, lateSender.msgIDs())
	req.False(late.InRoom())
	snapshot, err := reg.Get(roomID)
	req.NoError(err)
	req.Equal(1, snapshot.Occupancy())
}

func TestDispatcher_Exit_Without_A_Room_Fails(t *testing.T) {
	req := require.New(t)
	dispatcher, _, _ := newTestDispatcher()
	sess := domain.NewSession(uuid.NewString())
	sender := newRecordingSender(sess.ID)

	dispatcher.Handle(sess, sender, frame(t, MsgExitRoom, nil))

	req.Equal([]string{MsgRoomError}, sender.msgIDs())
}

func TestDispatcher_Full_Room_Lifecycle(t *testing.T) {
	req := require.New(t)
	dispatcher, reg, bus := newTestDispatcher()
	capture := &captor{}
	bus.Subscribe(event.RoomReadyType, capture)
	bus.Subscribe(event.RoomExitedType, capture)

	// A creates a room of capacity 2
	alice := domain.NewSession(uuid.NewString())
	aliceSender := newRecordingSender(alice.ID)
	dispatcher.Handle(alice, aliceSender, frame(t, MsgCreateRoom, CreateRoomRequest{Capacity: 2, Name: "Alpha", DisplayName: "Alice"}))
	roomID := createdRoomID(t, aliceSender)
	req.NotEmpty(roomID)
	req.Len(reg.List(), 1)

	// B joins; the room is ready exactly once
	bob := domain.NewSession(uuid.NewString())
	bobSender := newRecordingSender(bob.ID)
	dispatcher.Handle(bob, bobSender, frame(t, MsgJoinRoom, JoinRoomRequest{RoomID: roomID, DisplayName: "Bob"}))
	req.Equal(1, bobSender.count(MsgRoomJoined))
	req.Len(capture.ofType(event.RoomReadyType), 1)

	// C is turned away
	carol := domain.NewSession(uuid.NewString())
	carolSender := newRecordingSender(carol.ID)
	dispatcher.Handle(carol, carolSender, frame(t, MsgJoinRoom, JoinRoomRequest{RoomID: roomID}))
	req.Equal(1, carolSender.count(MsgRoomError))

	// A exits; the room survives with one member
	dispatcher.Handle(alice, aliceSender, frame(t, MsgExitRoom, nil))
	req.Equal(1, aliceSender.count(MsgRoomExited))
	req.False(alice.InRoom())
	snapshot, err := reg.Get(roomID)
	req.NoError(err)
	req.Equal(1, snapshot.Occupancy())

	// B exits; the room is deleted
	dispatcher.Handle(bob, bobSender, frame(t, MsgExitRoom, nil))
	req.Empty(reg.List())
	req.Len(capture.ofType(event.RoomExitedType), 2)
}

func TestDispatcher_Unknown_MsgID_Is_Ignored(t *testing.T) {
	req := require.New(t)
	dispatcher, _, bus := newTestDispatcher()
	capture := &captor{}
	bus.Subscribe(event.MessageDecodedType, capture)

	sess := domain.NewSession(uuid.NewString())
	sender := newRecordingSender(sess.ID)

	dispatcher.Handle(sess, sender, frame(t, "SHRUG", nil))

	// No response, no error; the decoded-message event still fired
	req.Empty(sender.msgIDs())
	req.Len(capture.ofType(event.MessageDecodedType), 1)
}

func TestDispatcher_Malformed_Frame_Is_A_Protocol_Error(t *testing.T) {
	req := require.New(t)
	dispatcher, reg, bus := newTestDispatcher()
	capture := &captor{}
	bus.Subscribe(event.TransportErrorType, capture)

	sess := domain.NewSession(uuid.NewString())
	sender := newRecordingSender(sess.ID)

	dispatcher.Handle(sess, sender, []byte("{not json"))

	req.Equal([]string{MsgWSError}, sender.msgIDs())
	req.Len(capture.ofType(event.TransportErrorType), 1)
	req.Empty(reg.List())
}

func TestDispatcher_Blank_Display_Names_Are_Generated_And_Distinct(t *testing.T) {
	req := require.New(t)
	dispatcher, _, bus := newTestDispatcher()
	capture := &captor{}
	bus.Subscribe(event.RoomJoinedType, capture)

	creator := domain.NewSession(uuid.NewString())
	creatorSender := newRecordingSender(creator.ID)
	dispatcher.Handle(creator, creatorSender, frame(t, MsgCreateRoom, CreateRoomRequest{Capacity: 2, Name: "Alpha"}))
	roomID := createdRoomID(t, creatorSender)

	joiner := domain.NewSession(uuid.NewString())
	joinerSender := newRecordingSender(joiner.ID)
	dispatcher.Handle(joiner, joinerSender, frame(t, MsgJoinRoom, JoinRoomRequest{RoomID: roomID}))

	joins := capture.ofType(event.RoomJoinedType)
	req.Len(joins, 2)

	first := joins[0].Payload.(event.RoomJoined).Member.Name
	second := joins[1].Payload.(event.RoomJoined).Member.Name
	req.NotEmpty(first)
	req.NotEmpty(second)
	req.Len(first, 5)
	req.NotEqual(first, second)
}

func TestDispatcher_Disconnect_Without_A_Room_Is_A_NoOp(t *testing.T) {
	req := require.New(t)
	dispatcher, _, bus := newTestDispatcher()
	capture := &captor{}
	bus.Subscribe(event.RoomExitedType, capture)

	sess := domain.NewSession(uuid.NewString())

	req.NotPanics(func() { dispatcher.Disconnect(sess) })
	req.Empty(capture.ofType(event.RoomExitedType))
}

func TestDispatcher_Disconnect_Exits_The_Current_Room(t *testing.T) {
	req := require.New(t)
	dispatcher, reg, bus := newTestDispatcher()
	capture := &captor{}
	bus.Subscribe(event.RoomExitedType, capture)

	sess := domain.NewSession(uuid.NewString())
	sender := newRecordingSender(sess.ID)
	dispatcher.Handle(sess, sender, frame(t, MsgCreateRoom, CreateRoomRequest{Capacity: 2, Name: "Alpha"}))
	req.True(sess.InRoom())

	// When the transport closes
	dispatcher.Disconnect(sess)

	// Then the member is gone, the empty room deleted, no reply sent
	req.False(sess.InRoom())
	req.Empty(reg.List())
	req.Len(capture.ofType(event.RoomExitedType), 1)
	req.Equal(0, sender.count(MsgRoomExited))
}

func TestDispatcher_Broadcast_Skips_Unwritable_Connections(t *testing.T) {
	req := require.New(t)
	dispatcher, _, _ := newTestDispatcher()

	creator := domain.NewSession(uuid.NewString())
	creatorSender := newRecordingSender(creator.ID)
	dispatcher.Handle(creator, creatorSender, frame(t, MsgCreateRoom, CreateRoomRequest{Capacity: 3, Name: "Alpha"}))
	roomID := createdRoomID(t, creatorSender)

	joiner := domain.NewSession(uuid.NewString())
	joinerSender := newRecordingSender(joiner.ID)
	dispatcher.Handle(joiner, joinerSender, frame(t, MsgJoinRoom, JoinRoomRequest{RoomID: roomID}))

	// The joiner's transport closed but its cleanup did not run yet
	joinerSender.ready = false

	dispatcher.Broadcast(roomID, MsgRoomReady, nil)

	req.Equal(1, creatorSender.count(MsgRoomReady))
	req.Equal(0, joinerSender.count(MsgRoomReady))
}

func TestDispatcher_Join_Delegates_To_The_Registry(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockSender := mocks.NewMockSender(ctrl)

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	bus := event.NewBus(log)
	dispatcher := NewDispatcher(log, mockRegistry, bus)

	sess := domain.NewSession("client-1")
	snapshot := domain.RoomSnapshot{
		ID:      "room-1",
		Name:    "Alpha",
		Size:    2,
		Clients: []domain.MemberInfo{{ID: "client-1", Name: "Ada"}},
	}

	// Given the registry accepts the join
	mockRegistry.EXPECT().
		Join("room-1", "client-1", mockSender, "Ada").
		Return(snapshot, nil).
		Times(1)
	mockSender.EXPECT().
		Send(MsgRoomJoined, RoomRef{RoomID: "room-1"}).
		Return(nil).
		Times(1)

	// When the join request is handled
	dispatcher.Handle(sess, mockSender, frame(t, MsgJoinRoom, JoinRoomRequest{RoomID: "room-1", DisplayName: "Ada"}))

	// Then the session follows the registry's answer
	req.True(sess.InRoom())
	req.Equal("room-1", sess.RoomID)
	req.Equal("Ada", sess.Name)
}
