// Package queue provides the receive buffer shared between the inbound
// listener's connection workers and the application polling for messages.
package queue

import "sync"

// Queue is a thread-safe FIFO of received message payloads. Producers are
// the per-connection workers of the inbound listener; the consumer is the
// application calling Pop. Neither operation blocks and neither performs
// I/O while holding the lock.
type Queue struct {
	mu    sync.Mutex
	items []string
}

// New creates an empty receive queue.
func New() *Queue {
	return &Queue{}
}

// Push appends a message to the back of the queue.
func (q *Queue) Push(msg string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, msg)
}

// Pop removes and returns the oldest message. The second return value is
// false when the queue is empty.
func (q *Queue) Pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return "", false
	}
	msg := q.items[0]
	q.items = q.items[1:]
	return msg, true
}

// Len returns the number of buffered messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
