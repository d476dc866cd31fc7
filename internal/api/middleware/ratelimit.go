package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ──────────────────────────────────────────────────────────────────────────────
// Per-IP token bucket
// ──────────────────────────────────────────────────────────────────────────────

// Agency desks script against the ledger API directly, so a runaway batch
// job from one caller must not starve interactive traffic. Each route group
// carries its own limiter; buckets are keyed by client IP and refill
// continuously.

// bucket tracks one caller's remaining allowance.
type bucket struct {
	mu       sync.Mutex
	tokens   float64
	refilled time.Time
}

// limiter is the shared bucket table for one route group.
type limiter struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
	rate    float64 // refill, tokens per second
	burst   float64 // bucket capacity
}

// newLimiter creates a limiter allowing rps sustained requests per second
// with the given burst capacity. Bursts below rps are raised to rps so a
// caller can always spend one full second's allowance at once.
func newLimiter(rps, burst int) *limiter {
	if burst < rps {
		burst = rps
	}
	return &limiter{
		buckets: make(map[string]*bucket),
		rate:    float64(rps),
		burst:   float64(burst),
	}
}

// take deducts one token for key and reports whether the request may
// proceed. The caller supplies the clock so refill behaviour is testable.
func (l *limiter) take(key string, now time.Time) bool {
	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()

	if !ok {
		l.mu.Lock()
		if b, ok = l.buckets[key]; !ok {
			b = &bucket{tokens: l.burst, refilled: now}
			l.buckets[key] = b
		}
		l.mu.Unlock()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens += now.Sub(b.refilled).Seconds() * l.rate
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.refilled = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// evictIdle drops buckets whose last activity predates cutoff, keeping the
// table from growing with every IP ever seen.
func (l *limiter) evictIdle(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, b := range l.buckets {
		b.mu.Lock()
		idle := b.refilled.Before(cutoff)
		b.mu.Unlock()
		if idle {
			delete(l.buckets, ip)
		}
	}
}

// RateLimitMiddleware returns a gin.HandlerFunc enforcing a per-IP token
// bucket of rps sustained requests per second with the given burst. Clients
// over the limit receive 429 in the standard error envelope.
func RateLimitMiddleware(rps, burst int) gin.HandlerFunc {
	l := newLimiter(rps, burst)

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			l.evictIdle(time.Now().Add(-10 * time.Minute))
		}
	}()

	return func(c *gin.Context) {
		if !l.take(c.ClientIP(), time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "rate limit exceeded, retry later",
				"code":    "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}
