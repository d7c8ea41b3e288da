// Package transport implements the socket layer of the session manager:
// the quantity-agnostic drain receiver, the outbound send-socket session,
// and the inbound accept-and-buffer listener. Each component selects
// between native TCP sockets and the modem's delegated socket abstraction
// per call, so a change of network interface takes effect immediately.
package transport

import "time"

const (
	// MaxReceiveBytes is the chunk size of a single socket read.
	MaxReceiveBytes = 1024

	// MaxQueuedConnections is the inbound listen backlog. Go's net.Listen
	// does not expose listen(2)'s backlog argument, so the kernel default
	// applies; the constant documents the protocol's expectation.
	MaxQueuedConnections = 5

	// ReceiveTimeout bounds the drain of one inbound connection.
	ReceiveTimeout = 5 * time.Second

	// SendTimeout is the default bound on outbound connect, write, and
	// reply drain.
	SendTimeout = 5 * time.Second

	// pollSlice bounds each blocking wait inside the drain and accept
	// loops so cancellation and timeouts are observed promptly.
	pollSlice = 1 * time.Second
)
