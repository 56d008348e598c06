package network

import (
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RecvLimiter is a token bucket on message delivery. Messages over the budget
// stay queued for a later frame instead of blocking the pump. Its limits can
// be swapped at runtime.
type RecvLimiter struct {
	limiter atomic.Pointer[rate.Limiter]
}

// NewRecvLimiter creates a limiter delivering limit messages per second with
// the given burst. A non-positive limit disables limiting.
func NewRecvLimiter(limit float64, burst int) *RecvLimiter {
	l := &RecvLimiter{}
	l.Reload(limit, burst)
	return l
}

// Allow reports whether one more message may be delivered at now.
func (l *RecvLimiter) Allow(now time.Time) bool {
	return l.limiter.Load().AllowN(now, 1)
}

// Reload replaces the limits.
func (l *RecvLimiter) Reload(limit float64, burst int) {
	if limit <= 0 {
		l.limiter.Store(rate.NewLimiter(rate.Inf, 0))
		return
	}
	if burst <= 0 {
		burst = 1
	}
	l.limiter.Store(rate.NewLimiter(rate.Limit(limit), burst))
}
