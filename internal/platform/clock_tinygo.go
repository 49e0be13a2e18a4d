//go:build tinygo

package platform

import (
	"runtime"
	"time"
)

// runtimeClock is the board clock. TinyGo starts it at the Unix epoch on boot.
type runtimeClock struct{}

func newDeviceClock() deviceClock {
	return runtimeClock{}
}

func (runtimeClock) Now() time.Time {
	return time.Now()
}

func (runtimeClock) Step(offset time.Duration) {
	runtime.AdjustTimeOffset(int64(offset))
}
