package ratelimit

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// memCounter is a test-only stand-in for the shared counter store.
type memCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newMemCounter() *memCounter { return &memCounter{counts: map[string]int64{}} }

func (m *memCounter) Hit(_ context.Context, key string, limit int64, _ time.Duration) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts[key] >= limit {
		return m.counts[key], false, nil
	}
	m.counts[key]++
	return m.counts[key], true, nil
}

type brokenCounter struct{}

func (brokenCounter) Hit(context.Context, string, int64, time.Duration) (int64, bool, error) {
	return 0, false, errors.New("dial tcp: connection refused")
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestLimitThenReject(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Unix(1_700_000_015, 0)} // 15s into a 60s window
	l := New(newMemCounter()).WithClock(clk.now)
	p := Policy{Limit: 3, Window: time.Minute}

	for i := 1; i <= 3; i++ {
		r := l.Allow(ctx, "10.0.0.1", "/api/score", p)
		if !r.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if r.Remaining != 3-i {
			t.Fatalf("request %d remaining=%d", i, r.Remaining)
		}
	}

	r := l.Allow(ctx, "10.0.0.1", "/api/score", p)
	if r.Allowed {
		t.Fatalf("limit+1 request should be rejected")
	}
	if r.Remaining != 0 {
		t.Fatalf("remaining=%d", r.Remaining)
	}
	if r.RetryAfter != 45*time.Second || r.Reset != r.RetryAfter {
		t.Fatalf("retryAfter=%v reset=%v", r.RetryAfter, r.Reset)
	}
}

func TestKeysAreIndependentPerClientAndRoute(t *testing.T) {
	ctx := context.Background()
	l := New(newMemCounter()).WithClock((&clock{t: time.Unix(1_700_000_000, 0)}).now)
	p := Policy{Limit: 1, Window: time.Minute}

	if !l.Allow(ctx, "a", "/api/score", p).Allowed {
		t.Fatalf("first request allowed")
	}
	if !l.Allow(ctx, "b", "/api/score", p).Allowed {
		t.Fatalf("other client has its own budget")
	}
	if !l.Allow(ctx, "a", "/api/images", p).Allowed {
		t.Fatalf("other route has its own budget")
	}
	if l.Allow(ctx, "a", "/api/score", p).Allowed {
		t.Fatalf("same pair should be limited")
	}
}

func TestNextWindowResets(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Unix(1_700_000_000, 0)}
	l := New(newMemCounter()).WithClock(clk.now)
	p := Policy{Limit: 2, Window: 10 * time.Second}

	l.Allow(ctx, "ip", "r", p)
	l.Allow(ctx, "ip", "r", p)
	if l.Allow(ctx, "ip", "r", p).Allowed {
		t.Fatalf("window w should be exhausted")
	}

	clk.t = clk.t.Add(10 * time.Second)
	r := l.Allow(ctx, "ip", "r", p)
	if !r.Allowed || r.Remaining != 1 {
		t.Fatalf("window w+1 should start fresh, got %+v", r)
	}
}

func TestFailOpen(t *testing.T) {
	l := New(brokenCounter{})
	r := l.Allow(context.Background(), "ip", "r", Policy{Limit: 1, Window: time.Minute})
	if !r.Allowed || !r.Degraded {
		t.Fatalf("store failure must allow the request, got %+v", r)
	}
}

func TestRedisCounterIsAtomicUnderConcurrency(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := New(NewRedisCounter(client))
	p := Policy{Limit: 20, Window: time.Hour}

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow(context.Background(), "1.2.3.4", "/api/score", p).Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if allowed.Load() != 20 {
		t.Fatalf("expected exactly 20 allowed, got %d", allowed.Load())
	}
}

func TestRedisCounterSetsExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewRedisCounter(client)
	n, ok, err := c.Hit(context.Background(), "k", 5, 2*time.Minute)
	if err != nil || !ok || n != 1 {
		t.Fatalf("Hit: n=%d ok=%v err=%v", n, ok, err)
	}
	if ttl := mr.TTL("k"); ttl <= 0 || ttl > 2*time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	mr.FastForward(3 * time.Minute)
	if mr.Exists("k") {
		t.Fatalf("counter should expire on its own")
	}
}

func TestRedisOutageFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	r := New(NewRedisCounter(client)).Allow(context.Background(), "ip", "r", Policy{Limit: 1, Window: time.Minute})
	if !r.Allowed {
		t.Fatalf("unreachable redis must not block traffic")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.7:5555"
	if got := ClientIP(r); got != "192.0.2.7" {
		t.Fatalf("peer fallback, got %q", got)
	}
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := ClientIP(r); got != "203.0.113.9" {
		t.Fatalf("xff first hop, got %q", got)
	}
	r.Header.Set("CF-Connecting-IP", "198.51.100.3")
	if got := ClientIP(r); got != "198.51.100.3" {
		t.Fatalf("cf header wins, got %q", got)
	}
	r = httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = ""
	if got := ClientIP(r); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
}
