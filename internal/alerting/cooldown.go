package alerting

import (
	"time"

	"oi-volume-alerts/internal/signal"
)

// CooldownGate suppresses repeated alerts for the same (symbol, category)
// pair within a fixed window. A zero or negative window disables gating and
// every qualifying tick alerts again, matching the original always-on
// behaviour. State lives for the process lifetime only.
type CooldownGate struct {
	window   time.Duration
	lastSent map[string]time.Time
	now      func() time.Time
}

// NewCooldownGate constructs a gate with the given window.
func NewCooldownGate(window time.Duration) *CooldownGate {
	return &CooldownGate{
		window:   window,
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Allow reports whether an alert for the pair may be dispatched now, and if
// so records the dispatch time. The first alert for a pair always passes.
func (g *CooldownGate) Allow(symbol string, category signal.Category) bool {
	if g.window <= 0 {
		return true
	}

	now := g.now()
	key := symbol + "|" + string(category)
	if last, ok := g.lastSent[key]; ok && now.Sub(last) < g.window {
		return false
	}

	g.lastSent[key] = now
	g.prune(now)
	return true
}

// prune drops expired entries so the map does not grow with the universe
// forever.
func (g *CooldownGate) prune(now time.Time) {
	for key, last := range g.lastSent {
		if now.Sub(last) >= g.window {
			delete(g.lastSent, key)
		}
	}
}
