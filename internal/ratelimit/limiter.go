// Package ratelimit implements a fixed-window request limiter keyed by client
// and route. Counting state lives in an external store; the limiter itself
// holds no per-client memory.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"face-score/internal/logger"
)

// Policy allows Limit requests per Window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Result describes one limiter decision. Reset and RetryAfter are equal on
// rejection: the time left until the current window closes.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Reset      time.Duration
	RetryAfter time.Duration
	// Degraded is set when the counter store failed and the request was let
	// through without being counted.
	Degraded bool
}

// Counter atomically increments key if its current value is below limit.
// It returns the value after the call and whether the increment happened.
// Keys must expire on their own after ttl.
type Counter interface {
	Hit(ctx context.Context, key string, limit int64, ttl time.Duration) (count int64, allowed bool, err error)
}

type Limiter struct {
	counter Counter
	now     func() time.Time
}

func New(counter Counter) *Limiter {
	return &Limiter{counter: counter, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

func windowSeconds(p Policy) int64 {
	ws := int64(p.Window / time.Second)
	if ws < 1 {
		ws = 1
	}
	return ws
}

// Key is the counting key for clientID and route at time now.
func Key(clientID, route string, p Policy, now time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", clientID, route, now.Unix()/windowSeconds(p))
}

// Allow counts one request for (clientID, route). Counter failures fail open.
func (l *Limiter) Allow(ctx context.Context, clientID, route string, p Policy) Result {
	if clientID == "" {
		clientID = "unknown"
	}
	now := l.now()
	ws := windowSeconds(p)
	reset := time.Duration(ws-now.Unix()%ws) * time.Second

	count, allowed, err := l.counter.Hit(ctx, Key(clientID, route, p, now), int64(p.Limit), 2*time.Duration(ws)*time.Second)
	if err != nil {
		logger.Warn("rate limit store unavailable, allowing request", map[string]any{
			"route": route,
			"error": err.Error(),
		})
		return Result{Allowed: true, Limit: p.Limit, Remaining: p.Limit, Reset: reset, Degraded: true}
	}

	if !allowed {
		return Result{
			Allowed:    false,
			Limit:      p.Limit,
			Remaining:  0,
			Reset:      reset,
			RetryAfter: reset,
		}
	}

	remaining := p.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Limit: p.Limit, Remaining: remaining, Reset: reset}
}
