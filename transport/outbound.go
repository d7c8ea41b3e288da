package transport

import (
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edgewire/cloudlink/network"
)

// Dialer establishes the outbound stream connection. Injectable for tests.
type Dialer func(host string, port int, timeout time.Duration) (net.Conn, error)

// dialTCP is the production Dialer.
func dialTCP(host string, port int, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), timeout)
}

// OutboundSession owns the send-side socket: it opens on demand, sends one
// message, drains any synchronous reply, and closes again unless the
// caller asks to keep it alive. At most one send socket is open per
// session. All operations are serialized by the session's own mutex.
//
// The modem capability is queried on every operation: when the query
// returns a non-nil ModemSockets, connect, send, and close are delegated
// to the modem instead of the native socket.
type OutboundSession struct {
	mu    sync.Mutex
	conn  net.Conn
	open  bool
	modem func() network.ModemSockets
	dial  Dialer
}

// NewOutboundSession creates a closed outbound session. modem is the
// per-call transport capability query; it may be nil when no modem
// collaborator exists.
func NewOutboundSession(modem func() network.ModemSockets) *OutboundSession {
	if modem == nil {
		modem = func() network.ModemSockets { return nil }
	}
	return &OutboundSession{
		modem: modem,
		dial:  dialTCP,
	}
}

// Open establishes the send socket to host:port. A no-op when the socket
// is already open.
func (s *OutboundSession) Open(host string, port int, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked(host, port, timeout)
}

func (s *OutboundSession) openLocked(host string, port int, timeout time.Duration) error {
	if s.open {
		return nil
	}

	logrus.WithFields(logrus.Fields{
		"function": "Open",
		"host":     host,
		"port":     port,
	}).Info("Connecting send socket")

	if m := s.modem(); m != nil {
		if err := m.Create(); err != nil {
			return err
		}
		if err := m.Connect(host, port); err != nil {
			return err
		}
	} else {
		conn, err := s.dial(host, port, timeout)
		if err != nil {
			return err
		}
		s.conn = conn
	}

	s.open = true
	return nil
}

// Send opens the socket if needed, writes the payload, and returns any
// synchronous reply. On the native path the reply is captured with a
// bounded Drain; on the modem path both send and reply extraction are
// delegated. The socket is closed afterwards unless closeAfter is false.
func (s *OutboundSession) Send(host string, port int, payload []byte, timeout time.Duration, closeAfter bool) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openLocked(host, port, timeout); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Send",
		"length":   len(payload),
	}).Info("Sending message")
	logrus.WithFields(logrus.Fields{
		"function": "Send",
		"payload":  string(payload),
	}).Debug("Send payload")

	var reply []byte
	if m := s.modem(); m != nil {
		var err error
		reply, err = m.Send(payload)
		if err != nil {
			return nil, err
		}
	} else {
		if err := s.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return nil, err
		}
		if _, err := s.conn.Write(payload); err != nil {
			return nil, err
		}
		var err error
		reply, err = Drain(s.conn, timeout)
		if err != nil {
			return reply, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"function": "Send",
	}).Info("Sent")

	if closeAfter {
		s.closeLocked()
	}
	return reply, nil
}

// Close shuts the send socket down gracefully and releases it. Idempotent;
// teardown errors are logged and swallowed so cleanup never masks the
// outcome of the operation that preceded it.
func (s *OutboundSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *OutboundSession) closeLocked() {
	if !s.open {
		return
	}

	if m := s.modem(); m != nil {
		if err := m.Close(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Close",
			}).WithError(err).Error("Error closing modem socket")
		}
	} else if s.conn != nil {
		if tcp, ok := s.conn.(*net.TCPConn); ok {
			// Best-effort graceful shutdown before close.
			_ = tcp.CloseWrite()
		}
		if err := s.conn.Close(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Close",
			}).WithError(err).Error("Error closing send socket")
		}
		s.conn = nil
	}

	s.open = false
	logrus.WithFields(logrus.Fields{
		"function": "Close",
	}).Info("Send socket closed")
}

// Reset drops the session's socket state without a graceful shutdown.
// Used when the receive socket is rebound and any stale send socket must
// be forgotten.
func (s *OutboundSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = nil
	s.open = false
}

// IsOpen reports whether the send socket is currently open.
func (s *OutboundSession) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}
