package ratelimit

import (
	"context"
	"sync"
	"time"

	"mercator-hq/parley/pkg/config"
)

// Reasons reported in a Decision.
const (
	ReasonRequests = "requests"
	ReasonStreams  = "streams"
)

// Decision is the outcome of a check.
type Decision struct {
	Allowed bool

	// Reason names the exhausted limit when Allowed is false.
	Reason string

	Limit     int64
	Remaining int64

	// RetryAfter is the earliest time a retry can succeed.
	RetryAfter time.Duration
}

type userState struct {
	requests *TokenBucket
	streams  int
	lastSeen time.Time
}

// Limiter holds per-user limits. The zero value is not usable; call New.
type Limiter struct {
	cfg config.RateLimitConfig
	now func() time.Time

	mu    sync.Mutex
	users map[string]*userState
}

// New creates a limiter from cfg. A disabled configuration yields a limiter
// that allows everything.
func New(cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		cfg:   cfg,
		now:   time.Now,
		users: make(map[string]*userState),
	}
}

// Enabled reports whether the limiter enforces anything.
func (l *Limiter) Enabled() bool {
	return l != nil && l.cfg.Enabled
}

func (l *Limiter) state(userID string, now time.Time) *userState {
	s, ok := l.users[userID]
	if !ok {
		rate := float64(l.cfg.RequestsPerMinute) / 60
		s = &userState{requests: NewTokenBucket(int64(l.cfg.Burst), rate, now)}
		l.users[userID] = s
	}
	s.lastSeen = now
	return s
}

// Allow consumes one turn for userID.
func (l *Limiter) Allow(userID string) Decision {
	if !l.Enabled() {
		return Decision{Allowed: true}
	}
	now := l.now()

	l.mu.Lock()
	bucket := l.state(userID, now).requests
	l.mu.Unlock()

	if bucket.Take(1, now) {
		return Decision{
			Allowed:   true,
			Limit:     bucket.Capacity(),
			Remaining: bucket.Remaining(now),
		}
	}
	return Decision{
		Reason:     ReasonRequests,
		Limit:      bucket.Capacity(),
		Remaining:  0,
		RetryAfter: bucket.TimeUntilAvailable(1, now),
	}
}

// AcquireStream takes one of userID's stream slots. When ok is true the
// caller must call release once the stream ends; extra calls are no-ops.
func (l *Limiter) AcquireStream(userID string) (release func(), d Decision) {
	if !l.Enabled() || l.cfg.MaxConcurrentStreams <= 0 {
		return func() {}, Decision{Allowed: true}
	}
	limit := int64(l.cfg.MaxConcurrentStreams)

	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.state(userID, l.now())
	if s.streams >= l.cfg.MaxConcurrentStreams {
		return func() {}, Decision{Reason: ReasonStreams, Limit: limit, RetryAfter: time.Second}
	}
	s.streams++

	var once sync.Once
	release = func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			s.streams--
			s.lastSeen = l.now()
		})
	}
	return release, Decision{Allowed: true, Limit: limit, Remaining: limit - int64(s.streams)}
}

// Prune forgets users idle for longer than the configured idle TTL and
// without open streams. It returns how many were removed.
func (l *Limiter) Prune() int {
	if !l.Enabled() {
		return 0
	}
	cutoff := l.now().Add(-l.cfg.IdleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, s := range l.users {
		if s.streams == 0 && s.lastSeen.Before(cutoff) {
			delete(l.users, id)
			removed++
		}
	}
	return removed
}

// Users returns how many users currently have state.
func (l *Limiter) Users() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}

// Run calls Prune every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	if !l.Enabled() || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Prune()
		case <-ctx.Done():
			return
		}
	}
}
