package trigger

import (
	"sync"
	"time"
)

// Gate is a per-key rate limiter admitting at most one action per window.
// The check-and-record sequence is atomic: of two concurrent requests for
// the same key at the same instant, at most one is admitted.
type Gate struct {
	mu       sync.Mutex
	lastFire map[string]time.Time
}

// NewGate returns an empty gate; every key's first request is admitted.
func NewGate() *Gate {
	return &Gate{lastFire: make(map[string]time.Time)}
}

// TryAdmit admits the request and records now as the key's last-fire time iff
// at least window has elapsed since the previous admission for key. A key
// with no prior record is always admitted. Rejection leaves no trace.
func (g *Gate) TryAdmit(key string, window time.Duration, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if last, ok := g.lastFire[key]; ok && now.Sub(last) < window {
		return false
	}
	g.lastFire[key] = now
	return true
}

// Remaining reports how long until key can fire again, zero if it can fire now.
func (g *Gate) Remaining(key string, window time.Duration, now time.Time) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	last, ok := g.lastFire[key]
	if !ok {
		return 0
	}
	if d := window - now.Sub(last); d > 0 {
		return d
	}
	return 0
}
