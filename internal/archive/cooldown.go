package archive

import (
	"sync"
	"time"

	"github.com/JakeFAU/pagewatch/internal/metrics"
	"github.com/JakeFAU/pagewatch/internal/watch"
)

// DefaultCooldown is how long submissions pause after a trip.
const DefaultCooldown = time.Hour

// Gate suppresses archive submissions for a fixed window after a failure.
// Check and trip are serialized so concurrent submitters cannot lose updates.
type Gate struct {
	mu          sync.Mutex
	clock       watch.Clock
	duration    time.Duration
	activeUntil time.Time
}

// NewGate returns a clear Gate that cools for duration once tripped.
func NewGate(clock watch.Clock, duration time.Duration) *Gate {
	if duration <= 0 {
		duration = DefaultCooldown
	}
	return &Gate{clock: clock, duration: duration}
}

// Cooling reports whether submissions are suppressed, and until when.
func (g *Gate) Cooling() (bool, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cooling := CoolingAt(g.clock.Now(), g.activeUntil)
	metrics.SetCooldownActive(cooling)
	return cooling, g.activeUntil
}

// Trip starts (or extends) the cooldown window and returns its deadline. An
// existing later deadline is kept.
func (g *Gate) Trip() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	until := g.clock.Now().Add(g.duration)
	if until.After(g.activeUntil) {
		g.activeUntil = until
	}
	metrics.ObserveCooldownTrip()
	metrics.SetCooldownActive(true)
	return g.activeUntil
}

// CoolingAt is the pure cooling predicate: true iff now is before until.
func CoolingAt(now, until time.Time) bool {
	return !until.IsZero() && now.Before(until)
}
