package middleware

import (
	"testing"
	"time"
)

func TestLimiter_BurstThenDeny(t *testing.T) {
	l := newLimiter(1, 5)
	now := time.Now()

	for i := 0; i < 5; i++ {
		if !l.take("10.0.0.1", now) {
			t.Fatalf("request %d within the burst should pass", i+1)
		}
	}
	if l.take("10.0.0.1", now) {
		t.Error("request past the burst in the same instant should be limited")
	}
}

func TestLimiter_Refill(t *testing.T) {
	l := newLimiter(10, 10)
	now := time.Now()

	for i := 0; i < 10; i++ {
		l.take("10.0.0.2", now)
	}
	if l.take("10.0.0.2", now) {
		t.Fatal("drained bucket should deny")
	}
	// 200ms at 10 rps refills two tokens.
	if !l.take("10.0.0.2", now.Add(200*time.Millisecond)) {
		t.Error("refilled token should admit the request")
	}
}

func TestLimiter_PerCallerIsolation(t *testing.T) {
	l := newLimiter(1, 1)
	now := time.Now()

	if !l.take("10.0.0.3", now) {
		t.Fatal("first caller's first request should pass")
	}
	if l.take("10.0.0.3", now) {
		t.Error("first caller's second request should be limited")
	}
	if !l.take("10.0.0.4", now) {
		t.Error("a different caller must have its own bucket")
	}
}

func TestLimiter_BurstFloor(t *testing.T) {
	// A burst below rps would deny within one second's allowance.
	l := newLimiter(20, 1)
	now := time.Now()

	for i := 0; i < 20; i++ {
		if !l.take("10.0.0.5", now) {
			t.Fatalf("request %d within one second's allowance should pass", i+1)
		}
	}
}

func TestLimiter_EvictIdle(t *testing.T) {
	l := newLimiter(1, 1)
	now := time.Now()
	l.take("10.0.0.6", now)

	l.evictIdle(now.Add(time.Minute))

	l.mu.RLock()
	_, ok := l.buckets["10.0.0.6"]
	l.mu.RUnlock()
	if ok {
		t.Error("idle bucket should have been evicted")
	}
}
