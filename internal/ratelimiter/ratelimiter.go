package ratelimiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter provides request rate limiting using the token bucket algorithm.
//
// This wraps golang.org/x/time/rate:
//  1. Tokens are added to the bucket at a constant rate
//  2. Each request consumes one token
//  3. An empty bucket rejects (Allow) or delays (Wait) the request
//  4. Burst capacity allows temporary spikes above the sustained rate
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter.
//
// Parameters:
//   - perSecond: Sustained rate in tokens per second; 0 means unlimited
//   - burst: Bucket capacity; values below 1 are raised to 1
//
// Example:
//
//	// five login attempts per minute, bursts of three
//	limiter := New(5.0/60, 3)
func New(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Allow reports whether a request may proceed now, consuming a token if so.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Tokens returns the number of tokens currently available.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}

type keyedEntry struct {
	limiter  *RateLimiter
	lastSeen time.Time
}

// KeyedLimiter keeps one token bucket per key (client address, account).
//
// Buckets idle for longer than idleTTL are dropped on the next sweep, which
// runs opportunistically from Allow so no background goroutine is needed.
type KeyedLimiter struct {
	perSecond float64
	burst     int
	idleTTL   time.Duration
	now       func() time.Time

	mu        sync.Mutex
	entries   map[string]*keyedEntry
	lastSweep time.Time
}

// NewKeyed creates a per-key limiter where every key gets New(perSecond,
// burst). perSecond <= 0 disables limiting.
func NewKeyed(perSecond float64, burst int, idleTTL time.Duration) *KeyedLimiter {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &KeyedLimiter{
		perSecond: perSecond,
		burst:     burst,
		idleTTL:   idleTTL,
		now:       time.Now,
		entries:   make(map[string]*keyedEntry),
	}
}

// Allow reports whether key may make a request now.
func (k *KeyedLimiter) Allow(key string) bool {
	if k.perSecond <= 0 {
		return true
	}

	k.mu.Lock()
	now := k.now()
	k.sweep(now)
	e, ok := k.entries[key]
	if !ok {
		e = &keyedEntry{limiter: New(k.perSecond, k.burst)}
		k.entries[key] = e
	}
	e.lastSeen = now
	limiter := e.limiter
	k.mu.Unlock()

	return limiter.Allow()
}

// Len returns the number of tracked keys.
func (k *KeyedLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

// sweep drops idle buckets at most once per idleTTL. Callers hold mu.
func (k *KeyedLimiter) sweep(now time.Time) {
	if now.Sub(k.lastSweep) < k.idleTTL {
		return
	}
	k.lastSweep = now
	for key, e := range k.entries {
		if now.Sub(e.lastSeen) >= k.idleTTL {
			delete(k.entries, key)
		}
	}
}
