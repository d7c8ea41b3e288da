// Package network defines the collaborator contracts the session manager
// consumes: network presence, the modem's delegated socket primitives, and
// the deferred-delivery buffer used while the network is down.
package network

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Class identifies the kind of network interface currently in use. The
// session manager forces a disconnect on cellular-class networks after a
// send or receive fault so the modem can re-establish a clean session.
type Class uint8

const (
	ClassNone Class = iota
	ClassCellular
	ClassEthernet
	ClassWiFi
)

// String returns a human-readable name for the network class.
func (c Class) String() string {
	switch c {
	case ClassCellular:
		return "Cellular"
	case ClassEthernet:
		return "Ethernet"
	case ClassWiFi:
		return "WiFi"
	default:
		return "None"
	}
}

// Network is the presence and capability contract of the underlying
// network collaborator. A nil Network on the session manager means no
// network-presence concept is in play and sends proceed unconditionally.
type Network interface {
	// IsConnected reports whether the network is up and ready to carry
	// traffic.
	IsConnected() bool

	// Class reports the kind of interface in use.
	Class() Class

	// Disconnect tears down the network session. Invoked by the session
	// manager after transport faults on cellular-class networks.
	Disconnect() error

	// ModemSockets returns the modem's delegated socket primitives, or nil
	// when the interface exposes a raw IP stack. The session manager
	// queries this on every send/receive/listen call because the
	// capability can change if the underlying interface changes.
	ModemSockets() ModemSockets
}

// ModemSockets is the alternate transport: a socket-like abstraction the
// modem drives with vendor AT commands instead of a native IP stack.
type ModemSockets interface {
	// Create allocates a socket on the modem.
	Create() error

	// Connect opens the modem socket to the given endpoint.
	Connect(host string, port int) error

	// Send writes the payload and returns any synchronous reply.
	Send(payload []byte) ([]byte, error)

	// Close releases the modem socket.
	Close() error

	// OpenReceive asks the modem to listen for inbound connections on the
	// given port.
	OpenReceive(port int) error

	// PopReceived returns the oldest message the modem has buffered, or
	// nil when there is none.
	PopReceived() ([]byte, error)
}

// DeferredBuffer receives payloads that could not be sent because the
// network reported itself not connected. Delivery of buffered payloads is
// the collaborator's concern, not the session manager's.
type DeferredBuffer interface {
	Enqueue(payload string)
}

// MemoryBuffer is an in-memory DeferredBuffer for deployments without a
// persistent store.
type MemoryBuffer struct {
	mu       sync.Mutex
	payloads []string
}

// NewMemoryBuffer creates an empty in-memory deferred buffer.
func NewMemoryBuffer() *MemoryBuffer {
	return &MemoryBuffer{}
}

// Enqueue buffers a payload for later delivery.
func (b *MemoryBuffer) Enqueue(payload string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.payloads = append(b.payloads, payload)

	logrus.WithFields(logrus.Fields{
		"function": "Enqueue",
		"buffered": len(b.payloads),
	}).Debug("Payload added to deferred buffer")
}

// Drain returns all buffered payloads and empties the buffer.
func (b *MemoryBuffer) Drain() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	payloads := b.payloads
	b.payloads = nil
	return payloads
}

// Len returns the number of buffered payloads.
func (b *MemoryBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.payloads)
}
