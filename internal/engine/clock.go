package engine

import "sync/atomic"

// Clock stamps commands with strictly increasing sequence numbers.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// Submitters on different goroutines may call Next concurrently.
type Clock struct {
	seq atomic.Uint64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next value is start+1.
func NewClockAt(start uint64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() uint64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() uint64 {
	return c.seq.Load()
}
