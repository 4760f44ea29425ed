// Package ratelimit provides the process-local fixed-window rate limiter
// guarding the pricing endpoints. Window state is per instance; it is not
// shared across processes.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is the rate limiting contract the middleware enforces.
type Limiter interface {
	Allow(ctx context.Context, key string, window time.Duration, max int) (allowed bool, remaining int, resetAt time.Time, err error)
}

type window struct {
	start time.Time
	count int
}

// FixedWindow counts requests per client key within non-overlapping windows.
// The first request in a window starts it; once the count exceeds max the
// key is rejected until the window elapses.
type FixedWindow struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// NewFixedWindow constructs a FixedWindow limiter.
func NewFixedWindow(now func() time.Time) *FixedWindow {
	if now == nil {
		now = time.Now
	}
	return &FixedWindow{windows: make(map[string]*window), now: now}
}

// Allow counts a request for key and reports whether it is within the limit.
func (f *FixedWindow) Allow(_ context.Context, key string, windowSize time.Duration, max int) (bool, int, time.Time, error) {
	if windowSize <= 0 || max <= 0 {
		return true, 0, time.Time{}, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	w, ok := f.windows[key]
	if !ok || now.Sub(w.start) >= windowSize {
		w = &window{start: now}
		f.windows[key] = w
	}
	w.count++
	resetAt := w.start.Add(windowSize)
	remaining := max - w.count
	if remaining < 0 {
		remaining = 0
	}
	return w.count <= max, remaining, resetAt, nil
}

// Sweep garbage-collects windows that elapsed before cutoff age.
func (f *FixedWindow) Sweep(windowSize time.Duration) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	removed := 0
	for key, w := range f.windows {
		if now.Sub(w.start) >= windowSize {
			delete(f.windows, key)
			removed++
		}
	}
	return removed
}

// StartSweeper periodically removes elapsed windows until ctx is cancelled.
func (f *FixedWindow) StartSweeper(ctx context.Context, interval, windowSize time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				f.Sweep(windowSize)
			}
		}
	}()
}

// Len reports the number of live windows.
func (f *FixedWindow) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.windows)
}
