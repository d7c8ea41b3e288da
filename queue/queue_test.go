package queue

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopEmpty(t *testing.T) {
	q := New()

	msg, ok := q.Pop()
	assert.False(t, ok, "popping an empty queue should report no data")
	assert.Empty(t, msg)
}

func TestPushPop(t *testing.T) {
	q := New()
	q.Push("hello")

	msg, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "hello", msg)

	_, ok = q.Pop()
	assert.False(t, ok, "queue should be empty after popping the only entry")
}

func TestFIFOOrder(t *testing.T) {
	q := New()
	q.Push("first")
	q.Push("second")
	q.Push("third")

	require.Equal(t, 3, q.Len())

	for _, want := range []string{"first", "second", "third"} {
		msg, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, want, msg)
	}
}

func TestConcurrentProducers(t *testing.T) {
	q := New()

	const producers = 8
	const perProducer = 50

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				q.Push(fmt.Sprintf("msg-%d-%d", id, j))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, q.Len())
}
