// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a minimum interval between requests to the same
// network domain. Requests to different domains never throttle each other.
type RateLimiter struct {
	interval time.Duration

	mu      sync.Mutex
	domains map[string]*rate.Limiter
}

// NewRateLimiter returns a limiter allowing requestsPerSecond to each
// domain. Zero or negative falls back to 1.0 (one request per second).
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1.0
	}
	return &RateLimiter{
		interval: time.Duration(float64(time.Second) / requestsPerSecond),
		domains:  make(map[string]*rate.Limiter),
	}
}

// Interval returns the enforced minimum spacing between same-domain requests.
func (rl *RateLimiter) Interval() time.Duration {
	return rl.interval
}

// Acquire blocks until a request to domain is permitted or ctx is done.
// The domain map is guarded by a single mutex; the wait itself happens
// outside the lock, so a slow domain never delays acquires for others.
func (rl *RateLimiter) Acquire(ctx context.Context, domain string) error {
	rl.mu.Lock()
	lim, ok := rl.domains[domain]
	if !ok {
		lim = rate.NewLimiter(rate.Every(rl.interval), 1)
		rl.domains[domain] = lim
	}
	rl.mu.Unlock()

	return lim.Wait(ctx)
}
