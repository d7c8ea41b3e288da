package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func TestStartIntervalTooShort(t *testing.T) {
	s := New()

	err := s.Start(0, func() (bool, error) { return true, nil })
	assert.ErrorIs(t, err, ErrIntervalTooShort)
	assert.False(t, s.Running())
}

func TestStartConflict(t *testing.T) {
	s := New()

	require.NoError(t, s.Start(time.Second, func() (bool, error) { return true, nil }))
	defer s.Stop()

	err := s.Start(time.Second, func() (bool, error) { return true, nil })
	assert.ErrorIs(t, err, ErrJobActive)
}

func TestJobRunsImmediately(t *testing.T) {
	s := New()

	var runs atomic.Int32
	require.NoError(t, s.Start(time.Second, func() (bool, error) {
		runs.Add(1)
		return true, nil
	}))
	defer s.Stop()

	waitUntil(t, 2*time.Second, func() bool { return runs.Load() >= 1 })
}

func TestStopInterruptsIntervalWait(t *testing.T) {
	s := New()

	require.NoError(t, s.Start(time.Minute, func() (bool, error) { return true, nil }))

	// Give the first round a moment to finish, then Stop must return well
	// before the one-minute interval elapses.
	time.Sleep(100 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not interrupt the interval wait")
	}
	assert.False(t, s.Running())
}

func TestStopWithoutJobIsNoop(t *testing.T) {
	s := New()
	assert.NotPanics(t, s.Stop)
	assert.False(t, s.Running())
}

func TestJobEndsOnError(t *testing.T) {
	s := New()

	require.NoError(t, s.Start(time.Second, func() (bool, error) {
		return false, errors.New("send failed")
	}))

	waitUntil(t, 2*time.Second, func() bool { return !s.Running() })

	// The slot is free again after a failed job.
	require.NoError(t, s.Start(time.Second, func() (bool, error) { return true, nil }))
	s.Stop()
}

func TestJobEndsOnUnsuccessfulResult(t *testing.T) {
	s := New()

	var runs atomic.Int32
	require.NoError(t, s.Start(time.Second, func() (bool, error) {
		runs.Add(1)
		return false, nil
	}))

	waitUntil(t, 2*time.Second, func() bool { return !s.Running() })
	assert.Equal(t, int32(1), runs.Load(), "an unsuccessful round is not retried")

	// Stop after the job already ended itself is a no-op.
	assert.NotPanics(t, s.Stop)
}
