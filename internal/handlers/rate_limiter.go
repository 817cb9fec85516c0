package handlers

import (
	"strings"
	"sync"
	"time"
)

// rateLimiter throttles requests per caller key. Allow reports whether the
// request may proceed and, when denied, how long until the window resets.
type rateLimiter interface {
	Allow(key string) (bool, time.Duration)
}

type fixedWindowLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	buckets map[string]windowBucket
}

type windowBucket struct {
	count   int
	started time.Time
}

// newFixedWindowLimiter returns nil when the limit or window disables
// throttling; callers treat a nil limiter as always-allow.
func newFixedWindowLimiter(limit int, window time.Duration, clock func() time.Time) rateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &fixedWindowLimiter{
		limit:   limit,
		window:  window,
		clock:   clock,
		buckets: make(map[string]windowBucket),
	}
}

func (l *fixedWindowLimiter) Allow(key string) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}

	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[key]
	if !ok || now.Sub(bucket.started) >= l.window {
		l.buckets[key] = windowBucket{count: 1, started: now}
		l.evictStaleLocked(now)
		return true, 0
	}

	if bucket.count >= l.limit {
		return false, bucket.started.Add(l.window).Sub(now)
	}
	bucket.count++
	l.buckets[key] = bucket
	return true, 0
}

func (l *fixedWindowLimiter) evictStaleLocked(now time.Time) {
	for key, bucket := range l.buckets {
		if now.Sub(bucket.started) >= l.window {
			delete(l.buckets, key)
		}
	}
}
