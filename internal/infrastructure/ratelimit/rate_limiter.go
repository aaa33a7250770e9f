package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Policy describes the bucket used for one action.
type Policy struct {
	Burst    int
	Interval time.Duration // one token is added per Interval
}

// PerMinute spreads n actions evenly over a minute with a burst of n.
func PerMinute(n int) Policy {
	if n <= 0 {
		n = 1
	}
	return Policy{Burst: n, Interval: time.Minute / time.Duration(n)}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per user and action.
type RateLimiter struct {
	policies map[string]Policy
	fallback Policy
	buckets  map[string]*bucket
	mutex    sync.Mutex
	now      func() time.Time
}

func NewRateLimiter(policies map[string]Policy) *RateLimiter {
	if policies == nil {
		policies = make(map[string]Policy)
	}
	return &RateLimiter{
		policies: policies,
		// Default rate limit: 20 actions per minute
		fallback: PerMinute(20),
		buckets:  make(map[string]*bucket),
		now:      time.Now,
	}
}

// Allow consumes a token for the user action. When the bucket is empty it reports how
// long the caller should wait.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action
	now := rl.now()

	rl.mutex.Lock()
	b, exists := rl.buckets[key]
	if !exists {
		p, ok := rl.policies[action]
		if !ok {
			p = rl.fallback
		}
		b = &bucket{limiter: rate.NewLimiter(rate.Every(p.Interval), p.Burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mutex.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if wait := r.DelayFrom(now); wait > 0 {
		r.CancelAt(now)
		return false, wait
	}
	return true, 0
}

// Cleanup removes buckets that haven't been used for an hour.
func (rl *RateLimiter) Cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > time.Hour {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine runs Cleanup every 30 minutes until stop is closed.
func (rl *RateLimiter) StartCleanupRoutine(stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				rl.Cleanup()
			}
		}
	}()
}
