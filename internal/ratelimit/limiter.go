package ratelimit

import (
	"sync"
	"time"
)

// Limiter enforces a minimum spacing between accepted requests.
type Limiter struct {
	mu           sync.Mutex
	interval     time.Duration
	lastAccepted time.Time
}

// NewLimiter creates a limiter that accepts at most one call per interval.
func NewLimiter(interval time.Duration) *Limiter {
	return &Limiter{interval: interval}
}

// TryAccept reports whether a request arriving at now may proceed. The check
// and the update of the last accepted time happen under one lock.
func (l *Limiter) TryAccept(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.lastAccepted.IsZero() && now.Sub(l.lastAccepted) < l.interval {
		return false
	}
	l.lastAccepted = now
	return true
}

// RetryAfter returns how long a caller at now must wait for the next slot.
func (l *Limiter) RetryAfter(now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lastAccepted.IsZero() {
		return 0
	}
	wait := l.interval - now.Sub(l.lastAccepted)
	if wait < 0 {
		return 0
	}
	return wait
}

func (l *Limiter) Interval() time.Duration {
	return l.interval
}
