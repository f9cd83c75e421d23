// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a process-local token-bucket limiter with one bucket
// per caller (user id after Auth, client IP otherwise). Idle buckets are
// swept opportunistically. Idempotent replays are never limited.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc maps a request to a bucket identity.
type KeyFunc func(*gin.Context) string

// KeyByUserOrIP keys by "user:<id>" when Auth ran, else "ip:<addr>".
func KeyByUserOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if uid, ok := UserID(c); ok {
			return "user:" + uid
		}
		return "ip:" + c.ClientIP()
	}
}

const (
	bucketIdleTTL = 10 * time.Minute
	sweepEvery    = 5000
)

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter holds per-key token buckets. Safe for concurrent use.
type RateLimiter struct {
	limit      rate.Limit
	burst      int
	keyFn      KeyFunc
	retryAfter string

	mu      sync.Mutex
	buckets map[string]*bucket
	lookups int
	now     func() time.Time
}

// NewRateLimiter allows rps requests per second with the given burst per key.
// rps <= 0 disables limiting; burst < 1 is raised to 1.
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	if keyFn == nil {
		keyFn = KeyByUserOrIP()
	}
	limit := rate.Limit(rps)
	retry := 1
	if rps <= 0 {
		limit = rate.Inf
	} else {
		retry = int(math.Ceil(1 / rps))
	}
	return &RateLimiter{
		limit:      limit,
		burst:      burst,
		keyFn:      keyFn,
		retryAfter: strconv.Itoa(retry),
		buckets:    make(map[string]*bucket),
		now:        time.Now,
	}
}

// limiter returns the bucket for key, sweeping idle buckets every
// sweepEvery lookups before touching key's own entry.
func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= sweepEvery {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= bucketIdleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lookups = 0
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.lim
}

// IsRateBypass reports whether IdempotencyValidator flagged a replay.
func IsRateBypass(c *gin.Context) bool {
	v, _ := c.Get(ctxKeyRateBypass)
	b, _ := v.(bool)
	return b
}

// Handler enforces the limit, answering 429 too_many_requests with a
// Retry-After header when a bucket is empty.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) || rl.limiter(rl.keyFn(c)).Allow() {
			c.Next()
			return
		}
		c.Header("Retry-After", rl.retryAfter)
		abort(c, http.StatusTooManyRequests, "too_many_requests", "rate limit exceeded")
	}
}
