//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import "waitroom/domain"

// Sender is the outbound half of a client connection. The registry
// holds one Sender per member for direct replies and room broadcast;
// the connection's lifecycle belongs to the transport, not to the
// registry.
type Sender interface {
	// ID returns the connection's unique identity, assigned at
	// connect time.
	ID() string
	// Send serializes the payload under the given message id and
	// writes it to the peer.
	Send(msgID string, payload any) error
	// Ready reports whether the connection can still be written to.
	// Broadcast skips senders that are not ready instead of failing.
	Ready() bool
}

// IRegistry is the authoritative store of all rooms. Capacity checks
// and membership mutations are atomic per operation.
type IRegistry interface {
	List() map[string]domain.RoomSnapshot
	Get(roomID string) (domain.RoomSnapshot, error)
	RemainingCapacity(roomID string) (int, error)
	Create(capacity int, name string) (string, error)
	Join(roomID, memberID string, sender Sender, memberName string) (domain.RoomSnapshot, error)
	Exit(roomID, memberID string) (domain.RoomSnapshot, error)
	SendersFor(roomID string) []Sender
}
