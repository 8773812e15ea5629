package ratelimit

import (
	"sync"
	"time"
)

// localBuckets is the in-process fallback bucket table. Same continuous
// refill math as the Redis script, guarded by a single mutex. Entries are
// swept once they have been idle for twice their period.
type localBuckets struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens    float64
	updatedAt time.Time
	expiresAt time.Time
}

func newLocalBuckets() *localBuckets {
	lb := &localBuckets{buckets: make(map[string]*bucket)}
	go lb.sweep()
	return lb
}

func (lb *localBuckets) consume(key string, capacity int, period time.Duration, now time.Time) (bool, float64) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	b, ok := lb.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(capacity), updatedAt: now}
		lb.buckets[key] = b
	} else {
		refill := now.Sub(b.updatedAt).Seconds() * float64(capacity) / period.Seconds()
		b.tokens += refill
		if b.tokens > float64(capacity) {
			b.tokens = float64(capacity)
		}
		b.updatedAt = now
	}
	b.expiresAt = now.Add(2 * period)

	if b.tokens < 1 {
		return false, b.tokens
	}
	b.tokens--
	return true, b.tokens
}

func (lb *localBuckets) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		lb.mu.Lock()
		for key, b := range lb.buckets {
			if now.After(b.expiresAt) {
				delete(lb.buckets, key)
			}
		}
		lb.mu.Unlock()
	}
}
