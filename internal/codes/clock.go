package codes

import (
	"sort"
	"sync"
	"time"
)

// Clock is the time source used by the Registry.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop prevents the call from running. It reports whether the call
	// was still pending.
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }

// ManualClock is a Clock that only moves when Advance is called. Timers due
// within an Advance run synchronously, in wake order, on the caller's
// goroutine.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	clock *ManualClock
	at    time.Time
	seq   int
	f     func()
	done  bool
}

// NewManualClock returns a ManualClock reading start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the clock's current time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules f to run once the clock has advanced by d.
func (c *ManualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &manualTimer{clock: c, at: c.now.Add(d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.done {
		return false
	}
	t.done = true
	c.remove(t)
	return true
}

// remove drops t from the pending set. Caller holds c.mu.
func (c *ManualClock) remove(t *manualTimer) {
	for i, p := range c.timers {
		if p == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return
		}
	}
}

// Advance moves the clock forward by d, firing every timer that falls due.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.earliest()
		if next == nil || next.at.After(target) {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.remove(next)
		next.done = true
		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()

		next.f()
	}
}

// earliest returns the next timer to fire. Caller holds c.mu.
func (c *ManualClock) earliest() *manualTimer {
	if len(c.timers) == 0 {
		return nil
	}
	sorted := make([]*manualTimer, len(c.timers))
	copy(sorted, c.timers)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].at.Equal(sorted[j].at) {
			return sorted[i].seq < sorted[j].seq
		}
		return sorted[i].at.Before(sorted[j].at)
	})
	return sorted[0]
}

// Pending returns the number of timers that have not fired or been stopped.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// NextWake returns how long until the earliest pending timer fires.
func (c *ManualClock) NextWake() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.earliest()
	if next == nil {
		return 0, false
	}
	return next.at.Sub(c.now), true
}
