// Package event implements the named-event sink used by the session
// manager to announce message lifecycle events to the application.
package event

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Event names broadcast by the session manager core.
const (
	MessageSent     = "message.sent"
	MessageReceived = "message.received"
)

// Handler is a subscriber callback. Handlers are invoked synchronously on
// the broadcasting goroutine and must not block.
type Handler func()

// Broadcaster is the event sink consumed by the session manager.
// Broadcast is fire-and-forget and never returns an error.
type Broadcaster interface {
	Broadcast(name string)
}

// Bus is the default Broadcaster: a subscription registry keyed by event
// name with synchronous dispatch.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
	}
}

// Subscribe registers a handler for the named event.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Broadcast invokes every handler subscribed to the named event. Events
// with no subscribers are dropped.
func (b *Bus) Broadcast(name string) {
	b.mu.RLock()
	handlers := b.handlers[name]
	b.mu.RUnlock()

	logrus.WithFields(logrus.Fields{
		"function": "Broadcast",
		"event":    name,
		"handlers": len(handlers),
	}).Debug("Broadcasting event")

	for _, h := range handlers {
		h()
	}
}
