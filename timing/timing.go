// Package timing provides the monotonic tick source that drives the
// cooperative run-loop.
package timing

import (
	"sync"
	"time"
)

// Tick is a point in time, counted in milliseconds since boot.
type Tick uint64

// Common tick spans.
const (
	Millisecond Tick = 1
	Second      Tick = 1000 * Millisecond
	Minute      Tick = 60 * Second
)

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	Now() Tick
}

// ManualClock is a TimeTeller whose time only moves when told to. It is used
// by tests and by the host simulator.
type ManualClock struct {
	lock sync.Mutex
	now  Tick
}

// NewManualClock creates a ManualClock that starts at the given tick.
func NewManualClock(start Tick) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current tick.
func (c *ManualClock) Now() Tick {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.now
}

// Advance moves the clock forward by d ticks and returns the new time.
func (c *ManualClock) Advance(d Tick) Tick {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.now += d

	return c.now
}

// Set moves the clock to t. Time never goes backwards; an earlier t is
// ignored.
func (c *ManualClock) Set(t Tick) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if t > c.now {
		c.now = t
	}
}

// MonotonicClock reports the milliseconds elapsed since it was created.
type MonotonicClock struct {
	start time.Time
}

// NewMonotonicClock creates a MonotonicClock starting at zero.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

// Now returns the milliseconds elapsed since the clock was created.
func (c *MonotonicClock) Now() Tick {
	return Tick(time.Since(c.start).Milliseconds())
}

// Duration converts a tick span to a time.Duration.
func (t Tick) Duration() time.Duration {
	return time.Duration(t) * time.Millisecond
}
