package service

import (
	"context"
	"sync"
	"time"
)

const (
	maxBucketEntries = 10000
	bucketCleanupGap = time.Minute
)

// RateLimiter bounds how many chat requests one network identity may make
// per fixed window. Check records the request when it is allowed, so the
// check-and-count step is atomic under concurrent calls from one client.
//
// The fixed-window algorithm is approximate: a client can burst up to twice
// the limit across a window boundary. That is an accepted trade-off for the
// target load.
type RateLimiter interface {
	Check(ctx context.Context, clientID string) (allowed bool, retryAfter time.Duration)
}

type rateLimitBucket struct {
	count     int
	resetTime time.Time
}

// MemoryRateLimiter keeps buckets in process memory. Suitable for a
// single-process deployment; use RedisRateLimiter when several gateway
// processes must share quota state.
type MemoryRateLimiter struct {
	mu          sync.Mutex
	buckets     map[string]*rateLimitBucket
	limit       int
	window      time.Duration
	lastCleanup time.Time
}

func NewMemoryRateLimiter(limit int, window time.Duration) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		buckets:     make(map[string]*rateLimitBucket),
		limit:       limit,
		window:      window,
		lastCleanup: time.Now(),
	}
}

func (rl *MemoryRateLimiter) Check(_ context.Context, clientID string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanup()

	now := time.Now()

	bucket, exists := rl.buckets[clientID]
	if !exists {
		rl.buckets[clientID] = &rateLimitBucket{count: 1, resetTime: now.Add(rl.window)}
		return true, 0
	}

	if now.After(bucket.resetTime) {
		bucket.count = 1
		bucket.resetTime = now.Add(rl.window)
		return true, 0
	}

	if bucket.count >= rl.limit {
		return false, bucket.resetTime.Sub(now)
	}

	bucket.count++
	return true, 0
}

func (rl *MemoryRateLimiter) cleanup() {
	now := time.Now()
	if now.Sub(rl.lastCleanup) < bucketCleanupGap {
		return
	}
	rl.lastCleanup = now

	for key, bucket := range rl.buckets {
		if now.After(bucket.resetTime) {
			delete(rl.buckets, key)
		}
	}

	if len(rl.buckets) > maxBucketEntries {
		drop := make([]string, 0, len(rl.buckets)/5)
		for key := range rl.buckets {
			drop = append(drop, key)
			if len(drop) >= len(rl.buckets)/5 {
				break
			}
		}
		for _, key := range drop {
			delete(rl.buckets, key)
		}
	}
}
