package journal

import "sync/atomic"

// Clock stamps journal rows with strictly increasing seq numbers.
type Clock interface {
	Next() int64
}

// SeqClock is a monotonic logical clock. Safe for concurrent use.
type SeqClock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *SeqClock {
	return &SeqClock{}
}

// NewClockAt creates a clock resuming after start.
func NewClockAt(start int64) *SeqClock {
	c := &SeqClock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *SeqClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *SeqClock) Current() int64 {
	return c.seq.Load()
}
