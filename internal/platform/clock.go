//go:build !tinygo

package platform

import (
	"sync"
	"time"
)

// softClock stands in for a microcontroller clock on a host: until the first sync it counts up from the Unix epoch,
// exactly like a board that has just booted.
type softClock struct {
	boot time.Time

	mu     sync.RWMutex
	synced bool
	offset time.Duration
}

func newDeviceClock() deviceClock {
	return &softClock{boot: time.Now()}
}

func (c *softClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.synced {
		return time.Unix(0, 0).Add(time.Since(c.boot))
	}
	return time.Now().Add(c.offset)
}

func (c *softClock) Step(offset time.Duration) {
	c.mu.Lock()
	c.synced = true
	c.offset = offset
	c.mu.Unlock()
}
