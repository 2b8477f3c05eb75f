package routing

import (
	"sync"
	"sync/atomic"
)

// AtomicRoutingStats implements thread-safe routing statistics using atomic operations.
type AtomicRoutingStats struct {
	totalRequests atomic.Int64

	// requestsPerProvider tracks routes per provider
	requestsPerProvider sync.Map // map[string]*atomic.Int64

	premium      atomic.Int64
	defaultRoute atomic.Int64
	errors       atomic.Int64
}

// NewAtomicRoutingStats creates a new atomic routing statistics tracker.
func NewAtomicRoutingStats() *AtomicRoutingStats {
	return &AtomicRoutingStats{}
}

// record counts one classification outcome.
func (s *AtomicRoutingStats) record(route *Route, err error) {
	s.totalRequests.Add(1)
	if err != nil {
		s.errors.Add(1)
		return
	}

	val, _ := s.requestsPerProvider.LoadOrStore(route.ProviderName, &atomic.Int64{})
	val.(*atomic.Int64).Add(1)

	if route.Premium {
		s.premium.Add(1)
	}
	if route.Marker == "" {
		s.defaultRoute.Add(1)
	}
}

// Snapshot returns a point-in-time snapshot of the statistics.
func (s *AtomicRoutingStats) Snapshot() *RoutingStats {
	perProvider := make(map[string]int64)
	s.requestsPerProvider.Range(func(key, value interface{}) bool {
		perProvider[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})

	return &RoutingStats{
		TotalRequests:       s.totalRequests.Load(),
		RequestsPerProvider: perProvider,
		PremiumCount:        s.premium.Load(),
		DefaultCount:        s.defaultRoute.Load(),
		Errors:              s.errors.Load(),
	}
}
