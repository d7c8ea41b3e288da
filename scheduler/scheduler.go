// Package scheduler implements the single-slot periodic send job: one
// repeating background task per session manager, stoppable early and
// stopped automatically when a round fails.
package scheduler

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// MinInterval is the shortest interval a periodic job may run at.
const MinInterval = 1 * time.Second

var (
	// ErrIntervalTooShort is returned by Start when the interval is below
	// MinInterval.
	ErrIntervalTooShort = errors.New("interval cannot be less than 1 second")

	// ErrJobActive is returned by Start while a job already occupies the
	// slot.
	ErrJobActive = errors.New("cannot have more than one periodic job at once")
)

// Job is one round of a periodic job. Returning an error or ok=false ends
// the job; neither is retried.
type Job func() (ok bool, err error)

// Scheduler owns the single periodic job slot. The stop channel doubles as
// the inter-round delay and the immediate-cancellation trigger: the job
// goroutine selects between it and an interval timer.
type Scheduler struct {
	mu      sync.Mutex
	stopCh  chan struct{}
	stopped bool
	active  bool
	wg      sync.WaitGroup
}

// New creates a Scheduler with an empty job slot.
func New() *Scheduler {
	return &Scheduler{stopped: true}
}

// Start begins running job every interval until Stop is called or a round
// fails. The first round runs immediately. Fails with ErrIntervalTooShort
// below MinInterval and with ErrJobActive while a job is already running.
func (s *Scheduler) Start(interval time.Duration, job Job) error {
	if interval < MinInterval {
		return ErrIntervalTooShort
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return ErrJobActive
	}
	s.active = true
	s.stopped = false
	s.stopCh = make(chan struct{})

	s.wg.Add(1)
	go s.run(interval, job, s.stopCh)

	logrus.WithFields(logrus.Fields{
		"function": "Start",
		"interval": interval,
	}).Info("Periodic job started")

	return nil
}

// run executes job rounds until cancelled or a round fails.
func (s *Scheduler) run(interval time.Duration, job Job, stopCh <-chan struct{}) {
	defer s.wg.Done()
	defer s.release()

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		ok, err := job()
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "run",
			}).WithError(err).Info("Periodic job round failed, stopping job")
			return
		}
		if !ok {
			logrus.WithFields(logrus.Fields{
				"function": "run",
			}).Info("Periodic job round reported an unsuccessful result, stopping job")
			return
		}

		timer := time.NewTimer(interval)
		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// release marks the slot free. Runs on every loop exit so a job that ends
// itself, on failure or otherwise, leaves the scheduler startable again
// and Stop a no-op.
func (s *Scheduler) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		close(s.stopCh)
		s.stopped = true
	}
	s.active = false

	logrus.WithFields(logrus.Fields{
		"function": "release",
	}).Debug("Periodic job slot released")
}

// Stop signals the running job to end and blocks until its goroutine has
// exited. Stop with no active job returns immediately.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	if !s.stopped {
		close(s.stopCh)
		s.stopped = true
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// Running reports whether a job currently occupies the slot.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
