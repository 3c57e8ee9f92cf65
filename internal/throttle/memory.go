package throttle

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// visitor holds a single limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Memory is the in-process gate. Safe for concurrent use.
type Memory struct {
	window   time.Duration
	now      func() time.Time
	mu       sync.Mutex
	visitors map[string]*visitor
	cleanupN uint64
}

// NewMemory returns an in-process gate allowing one attempt per key per window.
func NewMemory(window time.Duration) *Memory {
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &Memory{
		window:   window,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

// limiterFor returns the limiter for key, creating it if absent. Every
// ~1000 lookups, entries idle for a full window are evicted; such a limiter
// has refilled, so dropping it changes nothing.
func (m *Memory) limiterFor(key string, now time.Time) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cleanupN++
	if m.cleanupN >= 1000 {
		for k, v := range m.visitors {
			if now.Sub(v.lastSeen) >= m.window {
				delete(m.visitors, k)
			}
		}
		m.cleanupN = 0
	}

	if v, ok := m.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rate.Every(m.window), 1)
	m.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// Allow consumes the key's token if available. A rejected attempt is
// cancelled so it does not push the cooldown further out.
func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	now := m.now()
	lim := m.limiterFor(key, now)

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return Decision{Allowed: false, RetryAfter: m.window}, nil
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return Decision{Allowed: false, RetryAfter: d}, nil
	}
	return Decision{Allowed: true}, nil
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.visitors)
}
