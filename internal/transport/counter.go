package transport

import "go.uber.org/atomic"

// Counter tracks bytes moved over one connection, for the per-session
// summary logged at connection end. The process-wide
// internal/metrics.BytesIn/BytesOut counters are updated separately, next
// to it, in Recv and Send.
type Counter struct {
	read  atomic.Uint64
	wrote atomic.Uint64
}

// NewCounter returns a zeroed Counter.
func NewCounter() *Counter {
	return &Counter{}
}

func (c *Counter) incrRead(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.read.Add(uint64(n))
}

func (c *Counter) incrWrote(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.wrote.Add(uint64(n))
}

// Snapshot returns the bytes read and written so far.
func (c *Counter) Snapshot() (read, wrote uint64) {
	if c == nil {
		return 0, 0
	}
	return c.read.Load(), c.wrote.Load()
}
