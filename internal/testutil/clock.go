// Package testutil provides shared helpers for deterministic tests.
package testutil

import (
	"sync"
	"time"
)

// TickingClock is a thread-safe deterministic clock for tests. Every call
// to Now advances it by a fixed step, so durations computed from
// successive reads are exact and repeatable.
type TickingClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewTickingClock creates a clock whose first Now() returns start.
func NewTickingClock(start time.Time, step time.Duration) *TickingClock {
	return &TickingClock{next: start, step: step}
}

// Now returns the current instant and advances the clock by one step.
func (c *TickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.next
	c.next = c.next.Add(c.step)
	return t
}

// Peek returns the instant the next Now() call will return.
func (c *TickingClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

// Reset rewinds the clock so the next Now() returns start again.
func (c *TickingClock) Reset(start time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = start
}
