package loop

import "sync"

// taskQueue is a thread-safe FIFO queue of tasks.
//
// The queue is unbounded: a task may post further tasks (a refresh that
// schedules another refresh) without blocking the loop.
//
// The queue uses a channel for signaling so Run can wait on it alongside
// ctx.Done().
type taskQueue struct {
	mu     sync.Mutex
	tasks  []Task
	closed bool
	signal chan struct{} // buffered, size 1
}

func newTaskQueue() *taskQueue {
	return &taskQueue{
		tasks:  make([]Task, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a task to the back of the queue.
// Returns false if the queue is closed.
func (q *taskQueue) Enqueue(t Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.tasks = append(q.tasks, t)

	// Non-blocking: the buffer of 1 coalesces signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes and returns the front task without blocking.
func (q *taskQueue) TryDequeue() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil, false
	}

	t := q.tasks[0]
	q.tasks[0] = nil // release the closure for GC

	if len(q.tasks) == 1 {
		q.tasks = q.tasks[:0]
	} else {
		q.tasks = q.tasks[1:]
	}

	return t, true
}

// Wait returns a channel that signals when tasks may be available. It is
// closed by Close.
func (q *taskQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close signals that no more tasks will be enqueued.
func (q *taskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
