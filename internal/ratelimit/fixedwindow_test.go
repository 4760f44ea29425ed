package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestFixedWindowLimit(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	limiter := NewFixedWindow(func() time.Time { return clock })
	ctx := context.Background()

	for i := 1; i <= 100; i++ {
		allowed, _, _, err := limiter.Allow(ctx, "10.0.0.1", time.Minute, 100)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d unexpectedly limited", i)
		}
	}

	allowed, remaining, resetAt, err := limiter.Allow(ctx, "10.0.0.1", time.Minute, 100)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if allowed {
		t.Fatalf("101st request within the window must be limited")
	}
	if remaining != 0 {
		t.Fatalf("expected 0 remaining, got %d", remaining)
	}
	if want := clock.Add(time.Minute); !resetAt.Equal(want) {
		t.Fatalf("expected reset at %v, got %v", want, resetAt)
	}
}

func TestFixedWindowResetsAfterWindow(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	limiter := NewFixedWindow(func() time.Time { return clock })
	ctx := context.Background()

	for i := 0; i < 101; i++ {
		limiter.Allow(ctx, "k", time.Minute, 100)
	}
	if allowed, _, _, _ := limiter.Allow(ctx, "k", time.Minute, 100); allowed {
		t.Fatalf("expected over-limit rejection")
	}

	clock = clock.Add(time.Minute)
	allowed, remaining, _, _ := limiter.Allow(ctx, "k", time.Minute, 100)
	if !allowed {
		t.Fatalf("expected a fresh window after the old one elapsed")
	}
	if remaining != 99 {
		t.Fatalf("expected 99 remaining in the new window, got %d", remaining)
	}
}

func TestFixedWindowKeysAreIndependent(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	limiter := NewFixedWindow(func() time.Time { return clock })
	ctx := context.Background()

	for i := 0; i < 101; i++ {
		limiter.Allow(ctx, "a", time.Minute, 100)
	}
	if allowed, _, _, _ := limiter.Allow(ctx, "b", time.Minute, 100); !allowed {
		t.Fatalf("other client keys must not be affected")
	}
}

func TestSweepRemovesElapsedWindows(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	limiter := NewFixedWindow(func() time.Time { return clock })
	ctx := context.Background()

	limiter.Allow(ctx, "a", time.Minute, 100)
	limiter.Allow(ctx, "b", time.Minute, 100)
	if limiter.Len() != 2 {
		t.Fatalf("expected 2 live windows, got %d", limiter.Len())
	}

	clock = clock.Add(61 * time.Second)
	if removed := limiter.Sweep(time.Minute); removed != 2 {
		t.Fatalf("expected 2 swept windows, got %d", removed)
	}
	if limiter.Len() != 0 {
		t.Fatalf("expected no windows after sweep, got %d", limiter.Len())
	}
}
