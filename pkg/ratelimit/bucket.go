package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket allows bursts up to capacity while holding the average rate
// to refillRate tokens per second. The caller supplies the clock.
type TokenBucket struct {
	capacity   int64
	tokens     int64
	refillRate float64
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket returns a full bucket.
func NewTokenBucket(capacity int64, refillRate float64, now time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: now,
	}
}

// Take consumes n tokens if they are available.
func (tb *TokenBucket) Take(n int64, now time.Time) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked(now)
	if tb.tokens >= n {
		tb.tokens -= n
		return true
	}
	return false
}

// Remaining returns the tokens available at now.
func (tb *TokenBucket) Remaining(now time.Time) int64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked(now)
	return tb.tokens
}

// Capacity returns the burst size.
func (tb *TokenBucket) Capacity() int64 {
	return tb.capacity
}

// TimeUntilAvailable returns how long until n tokens are available, or 0
// if they already are.
func (tb *TokenBucket) TimeUntilAvailable(n int64, now time.Time) time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked(now)
	if tb.tokens >= n {
		return 0
	}
	if tb.refillRate <= 0 {
		return time.Duration(1<<63 - 1)
	}

	needed := float64(n - tb.tokens)
	// Fractional progress since the last whole token counts toward the wait.
	elapsed := now.Sub(tb.lastRefill).Seconds()
	wait := needed/tb.refillRate - elapsed
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait * float64(time.Second))
}

// refillLocked adds whole tokens for the time since the last refill.
// lastRefill only moves when at least one token was added, so slow rates
// still accumulate. Caller must hold mu.
func (tb *TokenBucket) refillLocked(now time.Time) {
	elapsed := now.Sub(tb.lastRefill)
	if elapsed <= 0 {
		return
	}

	add := int64(elapsed.Seconds() * tb.refillRate)
	if add <= 0 {
		return
	}
	tb.tokens += add
	if tb.tokens >= tb.capacity {
		tb.tokens = tb.capacity
		tb.lastRefill = now
		return
	}
	tb.lastRefill = tb.lastRefill.Add(time.Duration(float64(add) / tb.refillRate * float64(time.Second)))
}
