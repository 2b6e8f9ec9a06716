// Package ratelimit provides a keyed token-bucket rate limiter.
//
// Login attempts are limited per client IP, so the key space is unbounded;
// a background janitor evicts buckets that have been idle long enough to
// refill completely.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleEviction is how long a bucket may go unused before the janitor
// drops it.
const idleEviction = 10 * time.Minute

// janitorInterval is how often idle buckets are swept.
const janitorInterval = time.Minute

// KeyedRateLimiter manages per-key rate limiting. Each unique key gets its
// own independent token bucket.
type KeyedRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int

	done     chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a keyed rate limiter allowing rps requests per second with
// the given burst per key.
func New(rps float64, burst int) *KeyedRateLimiter {
	krl := &KeyedRateLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(rps),
		burst:   burst,
		done:    make(chan struct{}),
	}

	go krl.janitor()

	return krl
}

// Allow reports whether a request for the given key should proceed.
// Never blocks.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	krl.mu.Lock()
	defer krl.mu.Unlock()

	b, ok := krl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(krl.limit, krl.burst)}
		krl.buckets[key] = b
	}
	b.lastSeen = time.Now()

	return b.limiter.Allow()
}

// Stop shuts down the janitor goroutine.
func (krl *KeyedRateLimiter) Stop() {
	krl.stopOnce.Do(func() {
		close(krl.done)
	})
}

func (krl *KeyedRateLimiter) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-krl.done:
			return
		case now := <-ticker.C:
			krl.mu.Lock()
			for key, b := range krl.buckets {
				if now.Sub(b.lastSeen) > idleEviction {
					delete(krl.buckets, key)
				}
			}
			krl.mu.Unlock()
		}
	}
}
