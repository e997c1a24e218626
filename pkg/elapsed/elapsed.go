// Package elapsed provides the call timer shown on the dashboard.
//
// A Counter is owned by whoever starts the call and handed to the session,
// which resets it on teardown. It is not a global.
package elapsed

import (
	"fmt"
	"sync"
	"time"
)

// Counter measures time since Start until Reset.
type Counter struct {
	mu      sync.Mutex
	now     func() time.Time
	started time.Time
	running bool
}

// New returns a stopped counter.
func New() *Counter {
	return &Counter{now: time.Now}
}

// NewWithClock returns a stopped counter reading time from now.
func NewWithClock(now func() time.Time) *Counter {
	return &Counter{now: now}
}

// Start begins counting. Starting a running counter is a no-op.
func (c *Counter) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.started = c.now()
	c.running = true
}

// Reset stops the counter and returns it to zero.
func (c *Counter) Reset() {
	c.mu.Lock()
	c.running = false
	c.started = time.Time{}
	c.mu.Unlock()
}

// Running reports whether the counter is counting.
func (c *Counter) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Elapsed returns whole seconds since Start, or zero when stopped.
func (c *Counter) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return 0
	}
	return c.now().Sub(c.started).Truncate(time.Second)
}

// String formats the elapsed time as MM:SS, or H:MM:SS past an hour.
func (c *Counter) String() string {
	return Format(c.Elapsed())
}

// Format renders d the way the call timer displays it.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
