package transport

import (
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgewire/cloudlink/event"
	"github.com/edgewire/cloudlink/queue"
)

// openOnLoopback binds l to an OS-assigned loopback port.
func openOnLoopback(t *testing.T, l *Listener) net.Addr {
	t.Helper()
	require.NoError(t, l.Open("127.0.0.1", 0))
	t.Cleanup(l.Close)
	addr := l.Addr()
	require.NotNil(t, addr)
	return addr
}

// waitUntil polls cond until it is true or the deadline passes.
func waitUntil(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestListenerReceivesMessage(t *testing.T) {
	q := queue.New()
	bus := event.NewBus()

	var received atomic.Int32
	bus.Subscribe(event.MessageReceived, func() { received.Add(1) })

	l := NewListener(q, bus)
	addr := openOnLoopback(t, l)

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	_, err = conn.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	waitUntil(t, 5*time.Second, func() bool { return q.Len() > 0 })

	msg, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "hello", msg)
	assert.Equal(t, int32(1), received.Load(), "message.received should have been broadcast")
}

func TestListenerDiscardsEmptyConnection(t *testing.T) {
	q := queue.New()
	l := NewListener(q, nil)
	addr := openOnLoopback(t, l)

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	// Give the worker time to drain and discard.
	time.Sleep(500 * time.Millisecond)
	assert.Zero(t, q.Len(), "empty reads are discarded silently")
}

func TestListenerHandlesConcurrentConnections(t *testing.T) {
	q := queue.New()
	l := NewListener(q, nil)
	addr := openOnLoopback(t, l)

	for _, msg := range []string{"one", "two", "three"} {
		conn, err := net.Dial("tcp", addr.String())
		require.NoError(t, err)
		_, err = conn.Write([]byte(msg))
		require.NoError(t, err)
		require.NoError(t, conn.Close())
	}

	waitUntil(t, 5*time.Second, func() bool { return q.Len() == 3 })
}

func TestBindRetriesOnceOnFreshSocket(t *testing.T) {
	var attempts atomic.Int32

	l := NewListener(queue.New(), nil)
	l.listen = func(host string, port int) (net.Listener, error) {
		if attempts.Add(1) == 1 {
			return nil, errors.New("address already in use")
		}
		return net.Listen("tcp", "127.0.0.1:0")
	}

	require.NoError(t, l.Open("127.0.0.1", 0))
	defer l.Close()

	assert.Equal(t, int32(2), attempts.Load(), "first bind failure should be retried once")
}

func TestBindFailsAfterSecondAttempt(t *testing.T) {
	var attempts atomic.Int32

	l := NewListener(queue.New(), nil)
	l.listen = func(host string, port int) (net.Listener, error) {
		attempts.Add(1)
		return nil, errors.New("address already in use")
	}

	err := l.Open("127.0.0.1", 4010)
	assert.ErrorContains(t, err, "bind receive socket")
	assert.Equal(t, int32(2), attempts.Load())
}

func TestCloseJoinsAcceptLoop(t *testing.T) {
	l := NewListener(queue.New(), nil)
	openOnLoopback(t, l)

	done := make(chan struct{})
	go func() {
		l.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Close did not join the accept loop within the poll slice")
	}

	assert.Nil(t, l.Addr())
	assert.NotPanics(t, l.Close, "Close on a closed listener is a no-op")
}
