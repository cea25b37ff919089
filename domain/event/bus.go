package event

import (
	"log/slog"
	"sync"
)

// Bus is the process-wide publish/subscribe seam between the
// registry/dispatcher core and its observers (logging, metrics,
// external integrations).
//
// Publishing is synchronous and fire-and-forget: handlers run in
// subscription order on the publisher's goroutine, and a panicking
// handler is isolated so it can neither stop later handlers nor crash
// the publisher. The bus is an observability seam, not part of the
// correctness-critical path; the core works with zero subscribers.
//
// Bus is safe for concurrent use by multiple goroutines.
type Bus struct {
	log      *slog.Logger
	mu       sync.RWMutex
	handlers map[Type][]Handler
}

func NewBus(log *slog.Logger) *Bus {
	return &Bus{
		log:      log,
		handlers: make(map[Type][]Handler),
	}
}

// Subscribe registers a handler for one event type. The same handler
// may be registered for several types.
func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// Publish delivers the event to every handler subscribed to its type,
// in subscription order.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[e.Type]))
	copy(handlers, b.handlers[e.Type])
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(h, e)
	}
}

func (b *Bus) dispatch(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked", "type", e.Type, "panic", r)
		}
	}()
	h.Handle(e)
}
