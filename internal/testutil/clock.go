package testutil

import (
	"sync"
	"time"
)

// DefaultEpoch is the first instant returned by a DeterministicClock created
// with a zero start.
var DefaultEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a wall clock for tests that advances one second per
// call, so run timestamps are reproducible and strictly increasing.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	start time.Time
	ticks int64
}

// NewDeterministicClock creates a clock starting at start, or DefaultEpoch
// when start is zero.
//
// The first call to Now() returns start + 1s.
func NewDeterministicClock(start time.Time) *DeterministicClock {
	if start.IsZero() {
		start = DefaultEpoch
	}
	return &DeterministicClock{start: start.UTC()}
}

// Now advances the clock by one second and returns the new instant.
// Its signature matches time.Now so it can be passed as engine.WithNow.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return c.start.Add(time.Duration(c.ticks) * time.Second)
}

// Current returns the last instant returned by Now without advancing.
func (c *DeterministicClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start.Add(time.Duration(c.ticks) * time.Second)
}

// Reset rewinds the clock to its start.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
