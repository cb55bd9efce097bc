// Package globaltime is the process clock. Run timestamps and the forward bound on
// extracted dates read it, so tests can pin both.
package globaltime

import (
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	nowFunc = time.Now
)

func Now() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return nowFunc()
}

func UTC() time.Time {
	return Now().UTC()
}

func SetMockTime(t time.Time) {
	mu.Lock()
	defer mu.Unlock()
	nowFunc = func() time.Time { return t }
}

func ResetTime() {
	mu.Lock()
	defer mu.Unlock()
	nowFunc = time.Now
}

// Freeze pins the clock to t and returns a func that restores the previous clock.
func Freeze(t time.Time) func() {
	mu.Lock()
	previous := nowFunc
	nowFunc = func() time.Time { return t }
	mu.Unlock()

	return func() {
		mu.Lock()
		defer mu.Unlock()
		nowFunc = previous
	}
}
