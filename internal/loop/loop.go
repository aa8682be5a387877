// Package loop provides the cooperative, single-goroutine run loop the
// renderer lives on.
//
// A task posted to the loop never runs synchronously inside Post: it runs
// on a later turn, after the code that posted it has returned. This is
// the deferral the refresh scheduler relies on to coalesce every refresh
// requested during one turn into a single batch.
package loop

import (
	"context"
	"log/slog"
)

// Task is one unit of work executed on the loop goroutine.
type Task func()

// Loop runs posted tasks in FIFO order on exactly one goroutine.
//
// Thread-safety model:
//   - Post(): safe from any goroutine
//   - Run() / RunPending(): must be called from exactly one goroutine
//     at a time; every task runs on that goroutine
type Loop struct {
	queue  *taskQueue
	logger *slog.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(l *slog.Logger) Option {
	return func(lp *Loop) {
		lp.logger = l
	}
}

// New creates an idle loop.
func New(opts ...Option) *Loop {
	l := &Loop{
		queue:  newTaskQueue(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post queues t for a later turn. Returns false once the loop is stopped.
func (l *Loop) Post(t Task) bool {
	return l.queue.Enqueue(t)
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	return l.queue.Len()
}

// RunPending runs queued tasks until the queue is empty, including tasks
// posted by the tasks it runs. It returns the number of tasks executed.
// Use it to drive the loop deterministically from tests and one-shot
// commands.
func (l *Loop) RunPending() int {
	n := 0
	for {
		t, ok := l.queue.TryDequeue()
		if !ok {
			return n
		}
		t()
		n++
	}
}

// Run executes tasks as they arrive.
// Blocks until ctx is cancelled or Stop() is called.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Debug("loop starting")

	for {
		if t, ok := l.queue.TryDequeue(); ok {
			t()
			continue
		}

		select {
		case <-ctx.Done():
			l.logger.Debug("loop stopping: context cancelled")
			l.queue.Close()
			return ctx.Err()

		case <-l.queue.Wait():
			// The signal channel is closed by Stop; an empty queue
			// after a wake-up means the loop is done.
			if l.queue.Len() == 0 && l.stopped() {
				l.logger.Debug("loop stopping: closed")
				return nil
			}
		}
	}
}

// Stop closes the loop. Tasks already queued still run under Run.
func (l *Loop) Stop() {
	l.queue.Close()
}

func (l *Loop) stopped() bool {
	l.queue.mu.Lock()
	defer l.queue.mu.Unlock()
	return l.queue.closed
}
