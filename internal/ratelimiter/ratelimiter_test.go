package ratelimiter

import (
	"context"
	"testing"
	"time"
)

// TestAllow verifies that Allow() enforces the burst capacity.
func TestAllow(t *testing.T) {
	limiter := New(1, 3)

	for i := 0; i < 3; i++ {
		if !limiter.Allow() {
			t.Fatalf("request %d should be allowed (within burst)", i)
		}
	}
	if limiter.Allow() {
		t.Fatal("request beyond burst should be rejected")
	}
}

// TestUnlimited verifies that a zero rate never rejects.
func TestUnlimited(t *testing.T) {
	limiter := New(0, 0)
	for i := 0; i < 1000; i++ {
		if !limiter.Allow() {
			t.Fatalf("unlimited limiter rejected request %d", i)
		}
	}
}

// TestWaitCancelled verifies that Wait honours context cancellation.
func TestWaitCancelled(t *testing.T) {
	limiter := New(0.001, 1)
	limiter.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx); err == nil {
		t.Fatal("Wait should fail when the context expires first")
	}
}

// TestKeyedLimiterIsolatesKeys verifies that one client's attempts do not
// consume another client's budget.
func TestKeyedLimiterIsolatesKeys(t *testing.T) {
	limiter := NewKeyed(0.001, 2, time.Minute)

	if !limiter.Allow("10.0.0.1") || !limiter.Allow("10.0.0.1") {
		t.Fatal("first two attempts should be allowed")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("third attempt should be rejected")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Fatal("other client should be allowed")
	}
}

// TestKeyedLimiterSweepsIdleKeys verifies idle buckets are dropped.
func TestKeyedLimiterSweepsIdleKeys(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	limiter := NewKeyed(1, 1, time.Minute)
	limiter.now = func() time.Time { return now }

	limiter.Allow("a")
	limiter.Allow("b")
	if got := limiter.Len(); got != 2 {
		t.Fatalf("expected 2 keys, got %d", got)
	}

	now = now.Add(2 * time.Minute)
	limiter.Allow("c")
	if got := limiter.Len(); got != 1 {
		t.Fatalf("expected idle keys to be swept, got %d keys", got)
	}
}

// TestKeyedLimiterDisabled verifies a zero rate disables limiting.
func TestKeyedLimiterDisabled(t *testing.T) {
	limiter := NewKeyed(0, 0, 0)
	for i := 0; i < 100; i++ {
		if !limiter.Allow("x") {
			t.Fatal("disabled limiter rejected a request")
		}
	}
}
