package accel

import (
	"fmt"
	"sync"
	"time"
)

type job struct {
	name string
	run  func() error
}

// Stream is an in-order work queue drained by one goroutine. Jobs complete in
// submission order, so a job may read the outputs of any job queued before it.
//
// After a job fails, later jobs are skipped until Synchronize reports the error.
// Enqueue and Synchronize may be called from several goroutines.
type Stream struct {
	jobs chan job

	pendMu  sync.Mutex
	idle    *sync.Cond
	pending int

	mu     sync.Mutex // guards closed and sends on jobs
	closed bool

	errMu sync.Mutex
	err   error
	done  chan struct{}
}

func newStream(size int) *Stream {
	s := &Stream{
		jobs: make(chan job, size),
		done: make(chan struct{}),
	}
	s.idle = sync.NewCond(&s.pendMu)
	go s.loop()
	return s
}

func (s *Stream) loop() {
	defer close(s.done)
	for j := range s.jobs {
		if s.failed() {
			s.finish()
			continue
		}

		start := time.Now()
		err := j.run()
		launchSeconds.WithLabelValues(j.name).Observe(time.Since(start).Seconds())
		if err != nil {
			s.errMu.Lock()
			s.err = fmt.Errorf("%s: %w", j.name, err)
			s.errMu.Unlock()
		}
		s.finish()
	}
}

func (s *Stream) finish() {
	streamPending.Dec()
	s.pendMu.Lock()
	s.pending--
	if s.pending == 0 {
		s.idle.Broadcast()
	}
	s.pendMu.Unlock()
}

func (s *Stream) failed() bool {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err != nil
}

// Enqueue submits fn. It blocks only when the queue is full.
func (s *Stream) Enqueue(name string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.pendMu.Lock()
	s.pending++
	s.pendMu.Unlock()
	streamPending.Inc()
	s.jobs <- job{name: name, run: fn}
	return nil
}

// Synchronize waits for every queued job and returns the first failure since
// the previous Synchronize, clearing it.
func (s *Stream) Synchronize() error {
	s.pendMu.Lock()
	for s.pending > 0 {
		s.idle.Wait()
	}
	s.pendMu.Unlock()

	s.errMu.Lock()
	defer s.errMu.Unlock()
	err := s.err
	s.err = nil
	return err
}

// Close drains the queue and stops the worker. It returns any unreported failure.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.jobs)
	s.mu.Unlock()

	<-s.done
	return s.Synchronize()
}
