package infra

import (
	"sync"
	"time"
)

// RateLimiter implements a token bucket. It guards the manual refresh path so
// a trigger-happy client cannot push the app past the price API's free-tier
// request budget.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// NewRateLimiter creates a limiter allowing a burst of maxRequests with
// perSecond sustained refill.
func NewRateLimiter(maxRequests int, perSecond float64) *RateLimiter {
	return &RateLimiter{
		tokens:     float64(maxRequests),
		maxTokens:  float64(maxRequests),
		refillRate: perSecond,
		lastRefill: time.Now(),
	}
}

// TryAcquire attempts to take a token without blocking.
func (r *RateLimiter) TryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()

	if r.tokens >= 1 {
		r.tokens--
		return true
	}
	return false
}

// refill adds tokens based on elapsed time. Must be called with mutex held.
func (r *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(r.lastRefill).Seconds()
	r.tokens += elapsed * r.refillRate

	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}

	r.lastRefill = now
}
