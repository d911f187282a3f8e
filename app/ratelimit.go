package app

import (
	"math"
	"sync"
	"time"

	"github.com/artpar/opgate/ports"
	"golang.org/x/time/rate"
)

// RateLimitState is attached to the operation context under CtxRateLimit.
type RateLimitState struct {
	Key       string  `json:"key"`
	Limit     float64 `json:"limit"`
	Burst     int     `json:"burst"`
	Remaining int     `json:"remaining"`
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key (user ID or remote address).
// Limits can be changed at runtime; existing buckets are updated in place.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	enabled  bool
	limit    rate.Limit
	burst    int
	clock    ports.Clock
}

// NewRateLimiter creates a rate limiter allowing rps requests per second
// with the given burst.
func NewRateLimiter(enabled bool, rps float64, burst int, clock ports.Clock) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		enabled:  enabled,
		limit:    rate.Limit(rps),
		burst:    burst,
		clock:    clock,
	}
}

// Update changes the limits for all current and future keys.
func (rl *RateLimiter) Update(enabled bool, rps float64, burst int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.enabled = enabled
	rl.limit = rate.Limit(rps)
	rl.burst = burst

	now := rl.clock.Now()
	for _, e := range rl.limiters {
		e.limiter.SetLimitAt(now, rl.limit)
		e.limiter.SetBurstAt(now, rl.burst)
	}
}

// Enabled reports whether limits are enforced.
func (rl *RateLimiter) Enabled() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.enabled
}

// Allow takes one token from key's bucket.
func (rl *RateLimiter) Allow(key string) (RateLimitState, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	e, ok := rl.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = now

	allowed := e.limiter.AllowN(now, 1)
	remaining := int(math.Floor(e.limiter.TokensAt(now)))
	if remaining < 0 {
		remaining = 0
	}

	return RateLimitState{
		Key:       key,
		Limit:     float64(rl.limit),
		Burst:     rl.burst,
		Remaining: remaining,
	}, allowed
}

// RetryAfter returns how long until key's bucket holds a token again.
func (rl *RateLimiter) RetryAfter(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	e, ok := rl.limiters[key]
	if !ok || rl.limit <= 0 {
		return 0
	}
	missing := 1 - e.limiter.TokensAt(rl.clock.Now())
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing / float64(rl.limit) * float64(time.Second))
}

// Cleanup drops buckets not used within maxIdle and returns how many
// were removed.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.clock.Now().Add(-maxIdle)
	removed := 0
	for key, e := range rl.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}
