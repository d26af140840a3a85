package node

import "sync/atomic"

// Clock hands out the node's sequence numbers. A batch takes one when it is
// processed and each of its transactions takes the next; state rows and
// receipts are ordered by these, not by wall time.
//
// Only the batch loop calls Next, but Current is read by status handlers
// on other goroutines.
type Clock struct {
	seq atomic.Int64
}

// NewClockAt returns a clock whose next value is after+1. A restarted node
// passes the highest seq found in its store.
func NewClockAt(after int64) *Clock {
	c := &Clock{}
	c.seq.Store(after)
	return c
}

// Next advances the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out, or the restore point.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
