package store

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleTTL must stay >= one minute: by then an idle bucket has refilled and dropping it loses nothing.
const idleTTL = 10 * time.Minute

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// MemoryRateLimiter gives each user a token bucket refilled at perMinute tokens per minute.
// Buckets idle for idleTTL are evicted.
type MemoryRateLimiter struct {
	mu        sync.Mutex
	buckets   map[int64]*bucket
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryRateLimiter(perMinute int) *MemoryRateLimiter {
	l := &MemoryRateLimiter{buckets: make(map[int64]*bucket), now: time.Now}
	if perMinute <= 0 {
		l.limit = rate.Inf
		return l
	}
	l.limit = rate.Every(time.Minute / time.Duration(perMinute))
	l.burst = perMinute
	return l
}

func (l *MemoryRateLimiter) Allow(_ context.Context, userID int64) (bool, error) {
	if l.limit == rate.Inf {
		return true, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[userID]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[userID] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1), nil
}

// Len reports how many users currently hold a bucket.
func (l *MemoryRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *MemoryRateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < idleTTL {
		return
	}
	l.lastSweep = now
	for id, b := range l.buckets {
		if now.Sub(b.seen) >= idleTTL {
			delete(l.buckets, id)
		}
	}
}
