package transport

import (
	"log/slog"
	"net/http"
	"time"

	"waitroom/domain"
	"waitroom/domain/event"
	"waitroom/protocol"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	socketBufferSize = 1024
	// defaultWriteTimeout bounds a single frame write; a peer that
	// stopped reading must not wedge a room broadcast.
	defaultWriteTimeout = 10 * time.Second
)

// Server upgrades HTTP requests to websocket connections and runs one
// read loop per connection. It is an http.Handler; mount it on
// whatever path the host process wants.
type Server struct {
	log        *slog.Logger
	dispatcher *protocol.Dispatcher
	bus        *event.Bus
	upgrader   websocket.Upgrader
}

func NewServer(log *slog.Logger, dispatcher *protocol.Dispatcher, bus *event.Bus) *Server {
	return &Server{
		log:        log,
		dispatcher: dispatcher,
		bus:        bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  socketBufferSize,
			WriteBufferSize: socketBufferSize,
			// Rendezvous rooms have no origin policy of their own.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	conn := newConn(uuid.NewString(), ws, defaultWriteTimeout)
	s.log.Info("new client connected", "client_id", conn.ID(), "remote", r.RemoteAddr)
	s.serve(conn)
}

// serve is the connection's read loop. It owns the session: the
// dispatcher and the close cleanup below are the only writers, so the
// session never needs a lock.
func (s *Server) serve(conn *Conn) {
	sess := domain.NewSession(conn.ID())
	defer func() {
		s.log.Info("client disconnected", "client_id", sess.ID)
		s.dispatcher.Disconnect(sess)
		conn.Close()
	}()

	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("read failed", "client_id", sess.ID, "error", err)
				s.bus.Publish(event.Event{Type: event.TransportErrorType, Payload: event.TransportError{
					ClientID: sess.ID,
					Err:      err.Error(),
				}})
			}
			return
		}

		s.bus.Publish(event.Event{Type: event.MessageReceivedType, Payload: event.MessageReceived{
			ClientID: sess.ID,
			Raw:      string(raw),
		}})
		s.dispatcher.Handle(sess, conn, raw)
	}
}
