package cache

import (
	"sync"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// sized is a value with an exact cost.
type sized struct {
	Name string
	Cost int
}

func (s sized) CacheSize() int { return s.Cost }

type pageMeta struct {
	Title       string
	Description string
	ImageURL    string
	Tags        []string
}
