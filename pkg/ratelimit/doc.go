// Package ratelimit throttles chat turns per user.
//
// Each user gets a token bucket for turns and a counter for open streams.
// State lives in memory and idle users are dropped by Prune, so the
// footprint follows the number of recently active users.
//
//	limiter := ratelimit.New(cfg.Access.RateLimit)
//	if d := limiter.Allow(userID); !d.Allowed {
//	    // 429 with Retry-After: d.RetryAfter
//	}
//
//	release, ok := limiter.AcquireStream(userID)
//	if ok {
//	    defer release()
//	}
package ratelimit
