package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucket is a non-blocking admission check for a protected external
// dependency. Up to Capacity calls are admitted as a burst; afterwards
// tokens refill continuously at RefillPerSecond. Rejected callers are not
// queued; they retry or fail.
type TokenBucket struct {
	limiter *rate.Limiter
	now     func() time.Time
	mu      sync.Mutex

	capacity int
	refill   float64
}

// NewTokenBucket creates a bucket with the given capacity and refill rate.
// The bucket starts full.
func NewTokenBucket(capacity int, refillPerSecond float64) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	return &TokenBucket{
		limiter:  rate.NewLimiter(rate.Limit(refillPerSecond), capacity),
		now:      time.Now,
		capacity: capacity,
		refill:   refillPerSecond,
	}
}

// Allow consumes one token if available and reports whether the call is
// admitted. It never blocks.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.limiter.AllowN(tb.now(), 1)
}

// Tokens returns the number of tokens currently available, clamped to
// [0, capacity]. Diagnostic only.
func (tb *TokenBucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tokens := tb.limiter.TokensAt(tb.now())
	if tokens < 0 {
		return 0
	}
	if tokens > float64(tb.capacity) {
		return float64(tb.capacity)
	}
	return tokens
}

// Stats returns bucket configuration and current fill level
func (tb *TokenBucket) Stats() map[string]interface{} {
	return map[string]interface{}{
		"capacity":          tb.capacity,
		"refill_per_second": tb.refill,
		"available_tokens":  tb.Tokens(),
	}
}

// setClock replaces the time source. Test hook.
func (tb *TokenBucket) setClock(now func() time.Time) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.now = now
}
