package engine

import (
	"log/slog"
	"sync"

	"github.com/roach88/keywords/internal/loop"
)

// RefreshTask is one queued refresh.
type RefreshTask struct {
	Callback func() error

	// Ref and Instance describe what the task refreshes. They are
	// informational; the scheduler never filters on them.
	Ref      string
	Instance *Instance
}

// Scheduler batches refresh tasks into windows.
//
// The first Schedule after a drain opens a window by posting a drain onto
// the run loop; every task scheduled before that drain runs joins the
// same window. A drain takes the pending tasks and closes the window
// before running any callback, so tasks scheduled by a callback open a
// new window instead of extending the one being drained.
//
// INVARIANTS:
//   - at most one window is open at a time
//   - tasks run in the order they were scheduled, each exactly once
//   - there is no cancellation
//
// Flush waiters belong to the window they join and are released only
// after every task of that window has run.
//
// Thread-safety: Schedule and Flush may be called from any goroutine.
// Callbacks always run on the loop goroutine.
type Scheduler struct {
	mu      sync.Mutex
	pending []RefreshTask
	waiters []chan struct{}
	open    bool
	windows int

	loop    *loop.Loop
	logger  *slog.Logger
	onError func(error)
	record  func(Event)
}

func newScheduler(l *loop.Loop, logger *slog.Logger, onError func(error), record func(Event)) *Scheduler {
	return &Scheduler{
		loop:    l,
		logger:  logger,
		onError: onError,
		record:  record,
	}
}

// Schedule queues task, opening a window if none is open.
func (s *Scheduler) Schedule(task RefreshTask) {
	s.schedule(task, nil)
}

func (s *Scheduler) schedule(task RefreshTask, waiter chan struct{}) {
	s.mu.Lock()
	s.pending = append(s.pending, task)
	if waiter != nil {
		s.waiters = append(s.waiters, waiter)
	}
	if s.open {
		s.mu.Unlock()
		return
	}
	s.open = true
	s.mu.Unlock()

	if !s.loop.Post(s.drain) {
		s.logger.Warn("refresh dropped: loop stopped", "ref", task.Ref)
	}
}

// Flush returns a channel that is closed when the window the call joins
// has drained: every task of that window, including those scheduled
// after Flush, has run by then. The flush counts as a task of the window.
// ref is accepted for symmetry with RefreshByRef and not used to filter.
func (s *Scheduler) Flush(ref string) <-chan struct{} {
	done := make(chan struct{})
	s.schedule(RefreshTask{
		Ref:      ref,
		Callback: func() error { return nil },
	}, done)
	return done
}

// Pending returns the number of tasks waiting for the next drain.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Windows returns how many windows have drained.
func (s *Scheduler) Windows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windows
}

func (s *Scheduler) drain() {
	s.mu.Lock()
	tasks, waiters := s.pending, s.waiters
	s.pending, s.waiters = nil, nil
	s.open = false
	s.windows++
	window := s.windows
	s.mu.Unlock()

	s.logger.Debug("refresh window", "window", window, "tasks", len(tasks))

	failed := 0
	for _, t := range tasks {
		if err := t.Callback(); err != nil {
			failed++
			// A failing refresh has no caller to return to; log and
			// keep draining so later tasks still run.
			s.logger.Error("refresh failed", "ref", t.Ref, "error", err)
			if s.onError != nil {
				s.onError(err)
			}
		}
	}

	s.record(Event{Kind: EventWindow, Window: window, Tasks: len(tasks), Failed: failed})
	for _, w := range waiters {
		close(w)
	}
}
