package testfixtures

import (
	"sync"
	"time"
)

// Clock is a manual time source shared by a service and the test driving it.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock starts at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start.UTC()}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc adapts the clock to the now func() time.Time parameters taken by
// the application services. A nil clock falls back to wall time.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Today is the current UTC calendar day at midnight, the granularity used for
// checkout, checkin and reservation dates.
func (c *Clock) Today() time.Time {
	y, m, d := c.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Day returns the calendar day offset days from Today.
func (c *Clock) Day(offset int) time.Time {
	return c.Today().AddDate(0, 0, offset)
}

// Advance moves the clock by d and returns the new instant. Token expiry tests
// use it to step past a TTL.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}
