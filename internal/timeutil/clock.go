// Package timeutil provides a testable clock and wall-clock budgets.
package timeutil

import (
	"sync"
	"time"
)

// Clock abstracts the time source so budgets can be tested.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the duration since t.
	Since(t time.Time) time.Duration
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

func (RealClock) Now() time.Time                  { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

// MockClock is a manually controlled clock for testing.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a new MockClock set to the given time.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Budget is a wall-clock allowance started at creation. A zero or
// negative limit never expires.
type Budget struct {
	clock Clock
	start time.Time
	limit time.Duration
}

// NewBudget starts a budget of limit on clock (nil means the real clock).
func NewBudget(clock Clock, limit time.Duration) Budget {
	if clock == nil {
		clock = RealClock{}
	}
	return Budget{clock: clock, start: clock.Now(), limit: limit}
}

// Elapsed is the time spent since the budget started.
func (b Budget) Elapsed() time.Duration { return b.clock.Since(b.start) }

// Exceeded reports whether the allowance is used up.
func (b Budget) Exceeded() bool {
	return b.limit > 0 && b.Elapsed() >= b.limit
}
