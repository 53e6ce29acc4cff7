package ratelimiter

import (
	"strings"
	"sync"
	"time"
)

// Policy caps the number of calls per key inside a sliding window
type Policy struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of a single Allow call
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter is an in-memory sliding window limiter keyed by namespace and key.
// Namespaces without a policy are denied.
//
//	rl := ratelimiter.NewRateLimiter()
//	rl.SetPolicy("ai", 20, time.Minute)
//	if d := rl.Allow("ai", organizationID); !d.Allowed { ... }
type RateLimiter struct {
	mu       sync.Mutex
	hits     map[string][]time.Time
	policies map[string]Policy
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter() *RateLimiter {
	return newRateLimiter(time.Now, time.Minute)
}

// NewRateLimiterWithClock is used by tests; it starts no cleanup goroutine
func NewRateLimiterWithClock(now func() time.Time) *RateLimiter {
	return newRateLimiter(now, 0)
}

func newRateLimiter(now func() time.Time, cleanupEvery time.Duration) *RateLimiter {
	rl := &RateLimiter{
		hits:     make(map[string][]time.Time),
		policies: make(map[string]Policy),
		now:      now,
		stop:     make(chan struct{}),
	}
	if cleanupEvery > 0 {
		go rl.cleanupLoop(cleanupEvery)
	}
	return rl
}

func (rl *RateLimiter) SetPolicy(namespace string, limit int, window time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.policies[namespace] = Policy{Limit: limit, Window: window}
}

func (rl *RateLimiter) Allow(namespace, key string) Decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	policy, ok := rl.policies[namespace]
	if !ok || policy.Limit <= 0 {
		return Decision{Allowed: false}
	}

	now := rl.now()
	composite := namespace + ":" + key
	recent := prune(rl.hits[composite], now.Add(-policy.Window))

	if len(recent) >= policy.Limit {
		rl.hits[composite] = recent
		return Decision{
			Allowed:    false,
			RetryAfter: recent[0].Add(policy.Window).Sub(now),
		}
	}

	recent = append(recent, now)
	rl.hits[composite] = recent
	return Decision{Allowed: true, Remaining: policy.Limit - len(recent)}
}

// Reset forgets every recorded hit for the key
func (rl *RateLimiter) Reset(namespace, key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.hits, namespace+":"+key)
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// prune keeps hits newer than cutoff; input is sorted oldest first
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return append([]time.Time(nil), hits[i:]...)
}

func (rl *RateLimiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for composite, hits := range rl.hits {
		namespace, _, _ := strings.Cut(composite, ":")
		policy, ok := rl.policies[namespace]
		if !ok {
			delete(rl.hits, composite)
			continue
		}
		if recent := prune(hits, now.Add(-policy.Window)); len(recent) == 0 {
			delete(rl.hits, composite)
		}
	}
}
