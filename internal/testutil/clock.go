package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant a FixedClock reports.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// FixedClock provides a thread-safe, deterministic wall clock for tests.
//
// Each call to Now advances the clock by one step, so successive mutations
// get distinct, ordered timestamps and golden traces stay byte-identical
// between runs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewFixedClock creates a clock starting at Epoch with a one-second step.
//
// The first call to Now() returns Epoch.
func NewFixedClock() *FixedClock {
	return &FixedClock{next: Epoch, step: time.Second}
}

// Now returns the current instant and advances the clock.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(c.step)
	return now
}

// Peek returns the instant the next Now call will report.
func (c *FixedClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

// Reset rewinds the clock to Epoch.
func (c *FixedClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = Epoch
}
