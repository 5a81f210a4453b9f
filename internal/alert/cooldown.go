package alert

import (
	"sync"
	"time"
)

// DefaultCooldown is the minimum time between two notifications for one condition
const DefaultCooldown = 300 * time.Second

// CooldownGate tracks when each alert condition last fired and suppresses
// re-firing within a fixed window. The zero value is not usable; use NewCooldownGate.
type CooldownGate struct {
	mu        sync.Mutex
	window    time.Duration
	now       func() time.Time
	lastFired map[string]time.Time
}

// CooldownOption customizes a CooldownGate
type CooldownOption func(*CooldownGate)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) CooldownOption {
	return func(g *CooldownGate) {
		g.now = now
	}
}

// NewCooldownGate creates a gate with the given window.
// A non-positive window falls back to DefaultCooldown.
func NewCooldownGate(window time.Duration, opts ...CooldownOption) *CooldownGate {
	if window <= 0 {
		window = DefaultCooldown
	}
	g := &CooldownGate{
		window:    window,
		now:       time.Now,
		lastFired: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Acquire reports whether key may fire now. On success the key's window is
// re-armed from the current time; on failure the state is left untouched.
// A key that never fired is always eligible.
func (g *CooldownGate) Acquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if last, ok := g.lastFired[key]; ok && now.Sub(last) < g.window {
		return false
	}
	g.lastFired[key] = now
	return true
}

// Reset forgets every key's last-fired time
func (g *CooldownGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastFired = make(map[string]time.Time)
}

// Window returns the cooldown window
func (g *CooldownGate) Window() time.Duration {
	return g.window
}
