// Package cooldown gates repeatable actions per key by comparing the last
// trigger timestamp against a minimum interval.
package cooldown

import (
	"sync"
	"time"

	domsvc "SignalDesk/internal/domain/service"
)

// Gate tracks the last time each key fired. Safe for concurrent use.
type Gate struct {
	clock domsvc.Clock
	mu    sync.Mutex
	last  map[string]time.Time
}

func New(clock domsvc.Clock) *Gate {
	return &Gate{clock: clock, last: make(map[string]time.Time)}
}

// Allow consumes the gate for key when at least interval has passed since
// the last successful call, and records the new timestamp.
func (g *Gate) Allow(key string, interval time.Duration) bool {
	now := g.clock.Now()
	g.mu.Lock()
	defer g.mu.Unlock()
	if t, ok := g.last[key]; ok && now.Sub(t) < interval {
		return false
	}
	g.last[key] = now
	return true
}

// Peek reports whether key would be allowed without consuming it.
func (g *Gate) Peek(key string, interval time.Duration) bool {
	now := g.clock.Now()
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.last[key]
	return !ok || now.Sub(t) >= interval
}

// Reset clears the timestamp for key so the next Allow fires.
func (g *Gate) Reset(key string) {
	g.mu.Lock()
	delete(g.last, key)
	g.mu.Unlock()
}
