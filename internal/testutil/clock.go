package testutil

import (
	"sync"
	"time"
)

// Clock is a thread-safe deterministic wall clock for tests.
//
// Each call to Now advances time by one millisecond, so documents inserted
// back to back get strictly increasing creation times and pagination order
// is reproducible across runs. Plug it into the engine with
// engine.WithClock(clock.Now).
type Clock struct {
	mu   sync.Mutex
	next int64
}

// NewClock creates a clock starting at the given epoch milliseconds.
func NewClock(startMillis int64) *Clock {
	return &Clock{next: startMillis}
}

// Now returns the next instant. Strictly monotonic: every call is one
// millisecond after the previous one.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := time.UnixMilli(c.next)
	c.next++
	return t
}

// Current returns the instant the next Now call will produce, without
// advancing.
func (c *Clock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.UnixMilli(c.next)
}

// Reset rewinds the clock to the given epoch milliseconds.
func (c *Clock) Reset(startMillis int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = startMillis
}
