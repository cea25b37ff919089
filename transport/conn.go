// Package transport binds gorilla/websocket connections to the
// dispatcher: it assigns an identity at connect time, feeds inbound
// frames to the protocol layer, and runs exit cleanup on close.
package transport

import (
	"sync"
	"time"

	"waitroom/errors"
	"waitroom/protocol"

	"github.com/gorilla/websocket"
)

// Conn wraps one websocket connection behind the contract.Sender
// interface. Writes are serialized by a mutex: the owning read
// goroutine and room broadcasts from other connections may send
// concurrently.
type Conn struct {
	id           string
	ws           *websocket.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

func newConn(id string, ws *websocket.Conn, writeTimeout time.Duration) *Conn {
	return &Conn{id: id, ws: ws, writeTimeout: writeTimeout}
}

// ID returns the identity assigned when the connection was accepted.
func (c *Conn) ID() string {
	return c.id
}

// Send serializes the payload under msgID and writes one text frame.
// The first write failure marks the connection closed; later sends
// fail fast without touching the socket again.
func (c *Conn) Send(msgID string, payload any) error {
	data, err := protocol.Encode(msgID, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.ErrConnClosed
	}
	if c.writeTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		c.closed = true
		return err
	}
	return nil
}

// Ready reports whether the connection can still be written to.
func (c *Conn) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Close marks the connection unwritable and closes the socket.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.ws.Close()
}
