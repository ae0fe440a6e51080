package timing

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a manually advanced Clock for tests
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	nextID  int
	pending []*fakeTimer
}

type fakeTimer struct {
	clock *FakeClock
	id    int
	at    time.Time
	f     func()
}

// NewFakeClock creates a clock frozen at now
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	timer := &fakeTimer{clock: c, id: c.nextID, at: c.now.Add(d), f: f}
	c.pending = append(c.pending, timer)
	return timer
}

// Pending returns the number of scheduled functions that have not fired yet
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Advance moves the clock forward and runs every function that became due, in schedule order.
// The functions run on the caller's goroutine without the clock's lock held.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due, rest []*fakeTimer
	for _, timer := range c.pending {
		if !timer.at.After(c.now) {
			due = append(due, timer)
		} else {
			rest = append(rest, timer)
		}
	}
	c.pending = rest
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].at.Before(due[j].at)
	})
	for _, timer := range due {
		timer.f()
	}
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	for i, timer := range t.clock.pending {
		if timer.id == t.id {
			t.clock.pending = append(t.clock.pending[:i], t.clock.pending[i+1:]...)
			return true
		}
	}
	return false
}
