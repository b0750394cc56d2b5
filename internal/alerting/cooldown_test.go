package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"oi-volume-alerts/internal/signal"
)

func gateAt(window time.Duration, clock *time.Time) *CooldownGate {
	g := NewCooldownGate(window)
	g.now = func() time.Time { return *clock }
	return g
}

func TestFirstAlertAlwaysPasses(t *testing.T) {
	now := time.Now()
	g := gateAt(5*time.Minute, &now)

	assert.True(t, g.Allow("BTCUSDT", signal.CategoryOpenInterestSurge))
}

func TestRepeatWithinWindowIsSuppressed(t *testing.T) {
	now := time.Now()
	g := gateAt(5*time.Minute, &now)

	assert.True(t, g.Allow("BTCUSDT", signal.CategoryOpenInterestSurge))

	now = now.Add(2 * time.Minute)
	assert.False(t, g.Allow("BTCUSDT", signal.CategoryOpenInterestSurge))
}

func TestAllowedAgainAfterWindowElapses(t *testing.T) {
	now := time.Now()
	g := gateAt(5*time.Minute, &now)

	assert.True(t, g.Allow("BTCUSDT", signal.CategoryOpenInterestSurge))

	now = now.Add(5 * time.Minute)
	assert.True(t, g.Allow("BTCUSDT", signal.CategoryOpenInterestSurge))
}

func TestCategoriesAreGatedIndependently(t *testing.T) {
	now := time.Now()
	g := gateAt(5*time.Minute, &now)

	assert.True(t, g.Allow("BTCUSDT", signal.CategoryOpenInterestSurge))
	assert.True(t, g.Allow("BTCUSDT", signal.CategoryVolumeSpike))
	assert.False(t, g.Allow("BTCUSDT", signal.CategoryVolumeSpike))
}

func TestSymbolsAreGatedIndependently(t *testing.T) {
	now := time.Now()
	g := gateAt(5*time.Minute, &now)

	assert.True(t, g.Allow("BTCUSDT", signal.CategoryVolumeSpike))
	assert.True(t, g.Allow("ETHUSDT", signal.CategoryVolumeSpike))
}

func TestZeroWindowDisablesGating(t *testing.T) {
	now := time.Now()
	g := gateAt(0, &now)

	for i := 0; i < 3; i++ {
		assert.True(t, g.Allow("BTCUSDT", signal.CategoryVolumeSpike))
	}
}

func TestExpiredEntriesArePruned(t *testing.T) {
	now := time.Now()
	g := gateAt(time.Minute, &now)

	g.Allow("BTCUSDT", signal.CategoryVolumeSpike)
	g.Allow("ETHUSDT", signal.CategoryVolumeSpike)

	now = now.Add(2 * time.Minute)
	g.Allow("SOLUSDT", signal.CategoryVolumeSpike)

	assert.Len(t, g.lastSent, 1)
}
