// Package ratelimit provides distributed rate limiting using Redis with a
// local token-bucket fallback.
package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket implements the token bucket algorithm. Thread-safe, refills
// continuously at the configured rate.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	rate       float64 // tokens per second
	lastRefill time.Time
}

// NewTokenBucket creates a full bucket with the given capacity and refill
// rate per second.
func NewTokenBucket(capacity, rate float64) *TokenBucket {
	if capacity <= 0 {
		capacity = 1
	}
	if rate <= 0 {
		rate = capacity / 60.0
	}
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		rate:       rate,
		lastRefill: time.Now(),
	}
}

// Allow attempts to consume one token.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// refill must be called with the lock held.
func (tb *TokenBucket) refill() {
	now := time.Now()
	tb.tokens += now.Sub(tb.lastRefill).Seconds() * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}

// bucketMaxIdle is how long an identifier's bucket may sit unused before it
// is dropped from the pool. A fully idle bucket is indistinguishable from a
// fresh one, so eviction never loosens the limit.
const bucketMaxIdle = 10 * time.Minute

// BucketPool keeps one bucket per identifier for the local fallback path.
// Idle buckets are swept out so a long Redis outage does not grow the map
// without bound.
type BucketPool struct {
	mu        sync.Mutex
	buckets   map[string]*bucketEntry
	capacity  float64
	rate      float64
	nextSweep time.Time
}

type bucketEntry struct {
	bucket   *TokenBucket
	lastUsed time.Time
}

// NewBucketPool creates a pool producing buckets with the given parameters.
func NewBucketPool(capacity, rate float64) *BucketPool {
	return &BucketPool{
		buckets:   make(map[string]*bucketEntry),
		capacity:  capacity,
		rate:      rate,
		nextSweep: time.Now().Add(bucketMaxIdle),
	}
}

// Allow consumes a token from the identifier's bucket, creating it on first use.
func (p *BucketPool) Allow(identifier string) bool {
	now := time.Now()

	p.mu.Lock()
	if now.After(p.nextSweep) {
		p.cleanupLocked(now, bucketMaxIdle)
		p.nextSweep = now.Add(bucketMaxIdle)
	}
	entry, ok := p.buckets[identifier]
	if !ok {
		entry = &bucketEntry{bucket: NewTokenBucket(p.capacity, p.rate)}
		p.buckets[identifier] = entry
	}
	entry.lastUsed = now
	p.mu.Unlock()

	return entry.bucket.Allow()
}

// Cleanup removes buckets idle longer than maxIdle and reports how many were
// dropped.
func (p *BucketPool) Cleanup(maxIdle time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cleanupLocked(time.Now(), maxIdle)
}

func (p *BucketPool) cleanupLocked(now time.Time, maxIdle time.Duration) int {
	removed := 0
	for key, entry := range p.buckets {
		if now.Sub(entry.lastUsed) > maxIdle {
			delete(p.buckets, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of live buckets.
func (p *BucketPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buckets)
}
