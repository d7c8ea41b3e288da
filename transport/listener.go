package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edgewire/cloudlink/event"
	"github.com/edgewire/cloudlink/queue"
)

// ListenFunc creates the listening socket. Injectable for tests.
type ListenFunc func(host string, port int) (net.Listener, error)

// listenTCP is the production ListenFunc. Go sets SO_REUSEADDR on TCP
// listeners by default on unix, so a rebind into TIME_WAIT succeeds
// without extra socket options.
func listenTCP(host string, port int) (net.Listener, error) {
	return net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
}

// Listener owns the inbound receive socket. Open binds and starts an
// accept loop in its own goroutine; every accepted connection is handled
// by a short-lived worker that drains one message and pushes it onto the
// receive queue. Workers are independent: a failing connection never
// affects its siblings or the accept loop.
type Listener struct {
	mu      sync.Mutex
	ln      net.Listener
	closing bool
	wg      sync.WaitGroup

	listen      ListenFunc
	queue       *queue.Queue
	events      event.Broadcaster
	recvTimeout time.Duration
}

// NewListener creates an unbound listener that pushes received messages
// onto q. events may be nil when no event sink is wired.
func NewListener(q *queue.Queue, events event.Broadcaster) *Listener {
	return &Listener{
		listen:      listenTCP,
		queue:       q,
		events:      events,
		recvTimeout: ReceiveTimeout,
	}
}

// Open binds the receive socket to host:port and starts the accept loop.
// A bind failure is retried once on a fresh socket, which covers the
// common case of the address lingering in TIME_WAIT from a stale
// instance; a second failure propagates.
func (l *Listener) Open(host string, port int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Open",
		"host":     host,
		"port":     port,
	}).Info("Binding receive socket")

	ln, err := l.listen(host, port)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Open",
		}).WithError(err).Info("Bind failed, retrying on a fresh socket")
		ln, err = l.listen(host, port)
		if err != nil {
			return fmt.Errorf("bind receive socket: %w", err)
		}
	}

	l.ln = ln
	l.closing = false

	l.wg.Add(1)
	go l.acceptLoop(ln)

	logrus.WithFields(logrus.Fields{
		"function": "Open",
		"addr":     ln.Addr().String(),
	}).Info("Receive socket listening")

	return nil
}

// acceptLoop accepts inbound connections until the closing flag is set or
// the socket fails. Each iteration re-acquires the lifecycle lock only to
// check the flag, then waits for a connection under a pollSlice deadline
// so Close is observed promptly.
func (l *Listener) acceptLoop(ln net.Listener) {
	defer l.wg.Done()

	for {
		l.mu.Lock()
		closing := l.closing
		l.mu.Unlock()
		if closing {
			return
		}

		if tcp, ok := ln.(*net.TCPListener); ok {
			if err := tcp.SetDeadline(time.Now().Add(pollSlice)); err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "acceptLoop",
				}).WithError(err).Error("Exception in accept loop")
				return
			}
		}

		conn, err := ln.Accept()
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logrus.WithFields(logrus.Fields{
				"function": "acceptLoop",
			}).WithError(err).Error("Exception in accept loop")
			return
		}

		logrus.WithFields(logrus.Fields{
			"function": "acceptLoop",
			"remote":   conn.RemoteAddr().String(),
		}).Info("Connected to inbound peer")

		go l.handleConnection(conn)
	}
}

// handleConnection drains one message from an accepted connection and
// pushes it onto the receive queue. The connection is always closed, and
// errors are logged and dropped, never propagated.
func (l *Listener) handleConnection(conn net.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	recv, err := Drain(conn, l.recvTimeout)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "handleConnection",
			"remote":   conn.RemoteAddr().String(),
		}).WithError(err).Error("Exception in inbound connection handler")
		return
	}
	if len(recv) == 0 {
		logrus.WithFields(logrus.Fields{
			"function": "handleConnection",
		}).Info("Received empty message")
		return
	}

	msg := string(recv)
	logrus.WithFields(logrus.Fields{
		"function": "handleConnection",
		"length":   len(msg),
	}).Info("Received message")
	logrus.WithFields(logrus.Fields{
		"function": "handleConnection",
		"message":  msg,
	}).Debug("Received payload")

	l.queue.Push(msg)

	if l.events != nil {
		l.events.Broadcast(event.MessageReceived)
	}
}

// Close stops the accept loop and closes the receive socket. It blocks
// until the accept loop has observed the closing flag and exited.
// Teardown errors are logged and swallowed. A Close on an unbound
// listener is a no-op.
func (l *Listener) Close() {
	logrus.WithFields(logrus.Fields{
		"function": "Close",
	}).Info("Closing receive socket")

	l.mu.Lock()
	if l.ln == nil {
		l.mu.Unlock()
		return
	}
	l.closing = true
	l.mu.Unlock()

	l.wg.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ln.Close(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Close",
		}).WithError(err).Error("Error closing receive socket")
	}
	l.ln = nil

	logrus.WithFields(logrus.Fields{
		"function": "Close",
	}).Info("Receive socket closed")
}

// Addr returns the bound address of the receive socket, or nil when the
// listener is unbound.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}
