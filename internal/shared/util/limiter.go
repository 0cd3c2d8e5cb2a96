package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket shared by everything that talks to one remote
// API.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter creates a new token bucket limiter.
// r: tokens per second; r <= 0 means unlimited.
// b: burst size.
func NewLimiter(r float64, b int) *Limiter {
	limit := rate.Limit(r)
	if r <= 0 {
		limit = rate.Inf
	}
	if b < 1 {
		b = 1
	}
	return &Limiter{inner: rate.NewLimiter(limit, b)}
}

// Allow reports whether n tokens are available right now, consuming them if so.
func (l *Limiter) Allow(n int) bool {
	return l.inner.AllowN(time.Now(), n)
}

// Wait blocks until n tokens are available or ctx is done.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	return l.inner.WaitN(ctx, n)
}
