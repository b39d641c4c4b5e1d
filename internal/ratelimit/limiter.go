// Package ratelimit provides an in-process fixed-window rate limiter.
//
// Counters live in process memory: they are best-effort, reset on restart and are not
// shared between processes. Callers needing a strict global quota must not rely on
// this limiter alone.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Scope classifies a counter by purpose and subject kind.
type Scope string

const (
	ScopeSignupIP   Scope = "signup:ip"
	ScopeLoginIP    Scope = "login:ip"
	ScopeLoginPhone Scope = "login:phone"
)

// Rule is a limit of Limit attempts per fixed Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Key returns the counter key for subject under scope.
func Key(scope Scope, subject string) string {
	return string(scope) + ":" + subject
}

type window struct {
	count int
	start time.Time
	size  time.Duration
}

func (w *window) expired(now time.Time) bool {
	return !now.Before(w.start.Add(w.size))
}

// Limiter is a fixed-window counter keyed by string. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*window
	nowF    func() time.Time
}

// New returns an empty Limiter using the wall clock.
func New() *Limiter {
	return NewWithClock(time.Now)
}

// NewWithClock returns an empty Limiter reading time from now.
func NewWithClock(now func() time.Time) *Limiter {
	return &Limiter{
		entries: make(map[string]*window),
		nowF:    now,
	}
}

// Allow consumes one unit of quota for key and reports whether the attempt is allowed.
// A missing or elapsed window starts fresh with count 1. Inside a live window the count
// is incremented while below limit; at or above limit the attempt is denied and the
// count is left unchanged.
func (l *Limiter) Allow(key string, limit int, size time.Duration) bool {
	now := l.nowF()
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.entries[key]
	if !ok || w.expired(now) {
		l.entries[key] = &window{count: 1, start: now, size: size}
		return true
	}
	if w.count >= limit {
		return false
	}
	w.count++
	return true
}

// AllowRule is Allow for the key of subject under scope.
func (l *Limiter) AllowRule(scope Scope, subject string, r Rule) bool {
	return l.Allow(Key(scope, subject), r.Limit, r.Window)
}

// RetryAfter returns how long until the window for key rolls over, or 0 when no live
// window exists. It does not consume quota.
func (l *Limiter) RetryAfter(key string) time.Duration {
	now := l.nowF()
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.entries[key]
	if !ok || w.expired(now) {
		return 0
	}
	return w.start.Add(w.size).Sub(now)
}

// Sweep removes entries whose window has elapsed and returns how many were removed.
func (l *Limiter) Sweep() int {
	now := l.nowF()
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for k, w := range l.entries {
		if w.expired(now) {
			delete(l.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys, including stale ones not yet swept.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Run sweeps every interval until ctx is done. Intended to run in its own goroutine.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}
