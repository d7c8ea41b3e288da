package cloudlink

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edgewire/cloudlink/config"
	"github.com/edgewire/cloudlink/event"
	"github.com/edgewire/cloudlink/network"
	"github.com/edgewire/cloudlink/queue"
	"github.com/edgewire/cloudlink/scheduler"
	"github.com/edgewire/cloudlink/transport"
)

// Cloud is the session manager: the composition root wiring the outbound
// session, the inbound listener, the receive queue, and the periodic
// scheduler against one connection configuration.
//
// Outbound operations are not intended to be invoked concurrently from
// multiple goroutines; the outbound session serializes them with its own
// lock, but the call sequence (send, then pop the reply, then close) is
// the caller's to order.
type Cloud struct {
	cfg config.Config

	net      network.Network
	events   event.Broadcaster
	deferred network.DeferredBuffer

	outbound  *transport.OutboundSession
	listener  *transport.Listener
	recvQueue *queue.Queue
	periodic  *scheduler.Scheduler

	resultCheck   func(reply string) bool
	enableInbound bool
}

// Option configures a Cloud at construction.
type Option func(*Cloud)

// WithNetwork wires the network presence collaborator. Without one, the
// session manager assumes it is always ready to send and never uses the
// modem's delegated sockets.
func WithNetwork(n network.Network) Option {
	return func(c *Cloud) { c.net = n }
}

// WithEvents replaces the default event bus with a custom sink.
func WithEvents(b event.Broadcaster) Option {
	return func(c *Cloud) { c.events = b }
}

// WithDeferredBuffer wires the buffer that receives payloads while the
// network reports itself not connected.
func WithDeferredBuffer(b network.DeferredBuffer) Option {
	return func(c *Cloud) { c.deferred = b }
}

// WithEnableInbound opens the receive socket during construction.
// Construction fails when the receive host and port are not configured.
func WithEnableInbound() Option {
	return func(c *Cloud) { c.enableInbound = true }
}

// WithResultCheck sets the predicate deciding whether a periodic send's
// reply counts as a success. The default accepts every reply, which is
// this transport's behavior: it defines no result codes.
func WithResultCheck(fn func(reply string) bool) Option {
	return func(c *Cloud) { c.resultCheck = fn }
}

// New creates a session manager for the given connection configuration.
func New(cfg config.Config, opts ...Option) (*Cloud, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Cloud{
		cfg:         cfg,
		events:      event.NewBus(),
		recvQueue:   queue.New(),
		periodic:    scheduler.New(),
		resultCheck: func(string) bool { return true },
	}
	for _, opt := range opts {
		opt(c)
	}

	c.outbound = transport.NewOutboundSession(c.modemSockets)
	c.listener = transport.NewListener(c.recvQueue, c.events)

	if c.enableInbound {
		if !cfg.Receive.IsSet() {
			return nil, ErrMissingReceiveAddr
		}
		if err := c.OpenReceiveSocket(); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// modemSockets is the per-call transport capability query: non-nil when
// the active network interface only offers the modem's AT-driven sockets.
func (c *Cloud) modemSockets() network.ModemSockets {
	if c.net == nil {
		return nil
	}
	return c.net.ModemSockets()
}

// IsReadyToSend reports whether an outbound send may proceed: true when
// no network collaborator is wired or the network reports itself
// connected.
func (c *Cloud) IsReadyToSend() bool {
	return c.net == nil || c.net.IsConnected()
}

// sendOptions are the per-call knobs of SendMessage.
type sendOptions struct {
	timeout  time.Duration
	keepOpen bool
}

// SendOption adjusts a single SendMessage call.
type SendOption func(*sendOptions)

// WithSendTimeout overrides the configured timeout for one send.
func WithSendTimeout(d time.Duration) SendOption {
	return func(o *sendOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithKeepOpen leaves the send socket open after the send instead of
// closing it.
func WithKeepOpen() SendOption {
	return func(o *sendOptions) { o.keepOpen = true }
}

// SendMessage sends one message to the cloud endpoint and returns any
// synchronous reply.
//
// When the network reports itself not connected, the message goes to the
// deferred-delivery buffer and the result is empty. Transport faults are
// recovered locally: the network is force-disconnected on cellular-class
// interfaces, the fault is logged, and the result is empty. Configuration
// errors and non-transport errors propagate after the same disconnect
// side effect. A successful send broadcasts the message.sent event.
func (c *Cloud) SendMessage(message string, opts ...SendOption) (string, error) {
	so := sendOptions{timeout: c.cfg.SendTimeout()}
	for _, opt := range opts {
		opt(&so)
	}

	if !c.IsReadyToSend() {
		logrus.WithFields(logrus.Fields{
			"function": "SendMessage",
			"length":   len(message),
		}).Info("Network not connected, deferring message")
		if c.deferred != nil {
			c.deferred.Enqueue(message)
		}
		return "", nil
	}

	if !c.cfg.Send.IsSet() {
		c.enforceNetworkDisconnected()
		return "", ErrMissingSendAddr
	}

	logrus.WithFields(logrus.Fields{
		"function": "SendMessage",
		"length":   len(message),
	}).Info("Sending message with body")

	reply, err := c.outbound.Send(c.cfg.Send.Host, c.cfg.Send.Port, []byte(message), so.timeout, !so.keepOpen)
	if err != nil {
		c.enforceNetworkDisconnected()
		if isTransientNetFault(err) {
			logrus.WithFields(logrus.Fields{
				"function": "SendMessage",
			}).WithError(err).Error("An error occurred while attempting to send the message to the cloud")
			return "", nil
		}
		return "", err
	}

	c.events.Broadcast(event.MessageSent)
	return string(reply), nil
}

// SendPeriodicMessage starts a background job sending message every
// interval until stopped or a round fails. Topics are accepted for
// interface compatibility with other cloud backends and ignored by this
// transport. timeout bounds each round's socket operations; zero uses the
// configured default.
//
// Fails with scheduler.ErrIntervalTooShort below the minimum interval and
// with scheduler.ErrJobActive while another job is running; only one
// periodic job may exist at a time.
func (c *Cloud) SendPeriodicMessage(interval time.Duration, message string, topics []string, timeout time.Duration) error {
	err := c.periodic.Start(interval, func() (bool, error) {
		logrus.WithFields(logrus.Fields{
			"function": "SendPeriodicMessage",
		}).Info("Sending another periodic message")

		reply, err := c.SendMessage(message, WithSendTimeout(timeout))
		if err != nil {
			return false, err
		}

		logrus.WithFields(logrus.Fields{
			"function": "SendPeriodicMessage",
			"response": reply,
		}).Info("Periodic message response")

		return c.resultCheck(reply), nil
	})
	if err != nil {
		c.enforceNetworkDisconnected()
		return err
	}
	return nil
}

// StopPeriodicMessage stops the running periodic job and blocks until its
// goroutine has exited. A no-op when no job is running.
func (c *Cloud) StopPeriodicMessage() {
	logrus.WithFields(logrus.Fields{
		"function": "StopPeriodicMessage",
	}).Info("Stopping periodic job")

	c.periodic.Stop()

	logrus.WithFields(logrus.Fields{
		"function": "StopPeriodicMessage",
	}).Info("Periodic job stopped")
}

// PeriodicMessageRunning reports whether a periodic job is active.
func (c *Cloud) PeriodicMessageRunning() bool {
	return c.periodic.Running()
}

// InitializeReceiveSocket opens the receive socket and reports whether it
// is ready to accept inbound connections.
func (c *Cloud) InitializeReceiveSocket() (bool, error) {
	if err := c.OpenReceiveSocket(); err != nil {
		return false, err
	}
	return true, nil
}

// OpenReceiveSocket binds the receive socket and starts accepting inbound
// connections. On the modem path the listen is delegated wholesale.
// Binding resets the outbound session's socket state: a rebind implies
// the old connection context is gone.
func (c *Cloud) OpenReceiveSocket() error {
	if !c.cfg.Receive.IsSet() {
		return ErrMissingReceiveAddr
	}

	if m := c.modemSockets(); m != nil {
		return m.OpenReceive(c.cfg.Receive.Port)
	}

	if err := c.listener.Open(c.cfg.Receive.Host, c.cfg.Receive.Port); err != nil {
		return err
	}
	c.outbound.Reset()
	return nil
}

// CloseReceiveSocket stops accepting inbound connections and closes the
// receive socket. Blocks until the accept loop has exited.
func (c *Cloud) CloseReceiveSocket() {
	if m := c.modemSockets(); m != nil {
		if err := m.Close(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "CloseReceiveSocket",
			}).WithError(err).Error("Error closing modem receive socket")
		}
		return
	}
	c.listener.Close()
}

// PopReceivedMessage removes and returns the oldest buffered inbound
// message. The second return value is false when nothing is buffered.
func (c *Cloud) PopReceivedMessage() (string, bool) {
	if m := c.modemSockets(); m != nil {
		payload, err := m.PopReceived()
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "PopReceivedMessage",
			}).WithError(err).Error("Error popping message from modem")
			return "", false
		}
		if len(payload) == 0 {
			return "", false
		}
		return string(payload), true
	}
	return c.recvQueue.Pop()
}

// SendSMS always fails: this transport cannot carry SMS.
func (c *Cloud) SendSMS(destination, message string) error {
	return ErrSMSNotSupported
}

// CloseSendSocket closes the outbound send socket. Idempotent.
func (c *Cloud) CloseSendSocket() {
	c.outbound.Close()
}

// enforceNetworkDisconnected forces the network down after a transport
// fault. Only cellular-class networks require this; other classes recover
// on their own.
func (c *Cloud) enforceNetworkDisconnected() {
	if c.net == nil || c.net.Class() != network.ClassCellular {
		return
	}
	if err := c.net.Disconnect(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "enforceNetworkDisconnected",
		}).WithError(err).Error("Error forcing network disconnect")
	}
}
