// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ehtisham-afzal/21st/internal/platform/constants"
	"github.com/ehtisham-afzal/21st/internal/platform/ctxutil"
)

// # Rate Limiting

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// buckets holds one token bucket per caller key.
type buckets struct {
	mu      sync.Mutex
	entries map[string]*bucket
	limit   rate.Limit
	burst   int
}

func newBuckets(rps float64, burst int) *buckets {
	return &buckets{entries: make(map[string]*bucket), limit: rate.Limit(rps), burst: burst}
}

// reserve takes a token for key and reports how long the caller should wait
// when none is left.
func (set *buckets) reserve(key string, now time.Time) (bool, time.Duration) {
	set.mu.Lock()
	defer set.mu.Unlock()

	entry, found := set.entries[key]
	if !found {
		entry = &bucket{limiter: rate.NewLimiter(set.limit, set.burst)}
		set.entries[key] = entry
	}
	entry.lastSeen = now

	if entry.limiter.AllowN(now, 1) {
		return true, 0
	}
	reservation := entry.limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	reservation.CancelAt(now)
	return false, delay
}

func (set *buckets) sweep(idle time.Duration, now time.Time) {
	set.mu.Lock()
	defer set.mu.Unlock()
	for key, entry := range set.entries {
		if now.Sub(entry.lastSeen) > idle {
			delete(set.entries, key)
		}
	}
}

func (set *buckets) sweepUntil(context context.Context) {
	ticker := time.NewTicker(constants.RateLimitCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			set.sweep(constants.RateLimitClientTTL, now)
		case <-context.Done():
			return
		}
	}
}

// callerKey buckets authenticated publishers by account and everyone else by
// address, so publishers behind one NAT do not starve each other.
func callerKey(request *http.Request) string {
	if claims := ctxutil.GetAuthUser(request.Context()); claims != nil && claims.UserID != "" {
		return "user:" + claims.UserID
	}
	return "ip:" + RealIP(request)
}

// RateLimit applies the global per-caller budget. Must run after [Authenticate].
func RateLimit(context context.Context) Middleware {
	return Throttle(context, constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst)
}

/*
Throttle limits each caller to rps requests per second with the given burst.

Description: Rejected requests get 429 with a Retry-After header rounded up to
whole seconds. Idle buckets are swept until context is done. Route groups use
it for the expensive preview bundle and publish endpoints.

Parameters:
  - context: context.Context (stops the sweeper)
  - rps: float64
  - burst: int

Returns:
  - Middleware
*/
func Throttle(context context.Context, rps float64, burst int) Middleware {
	set := newBuckets(rps, burst)
	go set.sweepUntil(context)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			allowed, wait := set.reserve(callerKey(request), time.Now())
			if !allowed {
				seconds := int(wait / time.Second)
				if wait%time.Second != 0 || seconds == 0 {
					seconds++
				}
				writer.Header().Set("Retry-After", strconv.Itoa(seconds))
				abort(writer, http.StatusTooManyRequests, "RATE_LIMITED", "Rate limit exceeded")
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}
