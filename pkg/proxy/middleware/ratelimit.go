package middleware

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"mercator-hq/parley/pkg/proxy"
	"mercator-hq/parley/pkg/proxy/types"
	"mercator-hq/parley/pkg/ratelimit"
)

// RateLimitOptions configure RateLimitMiddleware.
type RateLimitOptions struct {
	// Identify returns the user a request counts against. Requests it
	// cannot identify pass through untouched and fail authentication
	// downstream.
	Identify func(r *http.Request) (userID string, ok bool)

	// Stream additionally holds one of the user's stream slots for the
	// lifetime of the handler.
	Stream bool

	// OnLimited is called with the exhausted limit for every rejection.
	OnLimited func(limit string)
}

// RateLimitMiddleware applies limiter to each request. Rejections are
// answered with 429, a Retry-After header and the rate_limited code.
// Allowed requests carry X-RateLimit-Limit and X-RateLimit-Remaining.
func RateLimitMiddleware(limiter *ratelimit.Limiter, opts RateLimitOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !limiter.Enabled() || opts.Identify == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := opts.Identify(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			d := limiter.Allow(userID)
			if !d.Allowed {
				rejectRateLimited(w, r, userID, d, opts.OnLimited)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))

			if opts.Stream {
				release, sd := limiter.AcquireStream(userID)
				if !sd.Allowed {
					rejectRateLimited(w, r, userID, sd, opts.OnLimited)
					return
				}
				defer release()
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(w http.ResponseWriter, r *http.Request, userID string, d ratelimit.Decision, onLimited func(string)) {
	if onLimited != nil {
		onLimited(d.Reason)
	}
	slog.WarnContext(r.Context(), "request rate limited",
		"user_id", userID,
		"limit", d.Reason,
		"retry_after", d.RetryAfter.String(),
		"request_id", GetRequestID(r.Context()),
	)

	retry := int(math.Ceil(d.RetryAfter.Seconds()))
	if retry < 1 {
		retry = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retry))
	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
	w.Header().Set("X-RateLimit-Remaining", "0")

	msg := fmt.Sprintf("too many requests, retry in %d seconds", retry)
	if d.Reason == ratelimit.ReasonStreams {
		msg = fmt.Sprintf("too many open streams (limit %d)", d.Limit)
	}
	_ = proxy.WriteErrorResponse(w, types.NewErrorResponse(http.StatusTooManyRequests, types.CodeRateLimited, msg))
}
