package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestKeyByUserOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")

	if got := KeyByUserOrIP()(c); got != "ip:203.0.113.9" {
		t.Fatalf("ip key = %q", got)
	}
	c.Set(userIDKey, "u123")
	if got := KeyByUserOrIP()(c); got != "user:u123" {
		t.Fatalf("user key = %q", got)
	}
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(0.25, 0, nil)
	if rl.burst != 1 || rl.keyFn == nil || rl.retryAfter != "4" {
		t.Fatalf("burst=%d retry=%s", rl.burst, rl.retryAfter)
	}
	if l := rl.limiter("k"); l != rl.limiter("k") {
		t.Fatalf("bucket should be reused per key")
	}
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	rl.limiter("old")
	clock = clock.Add(bucketIdleTTL)
	rl.lookups = sweepEvery - 1
	rl.limiter("old-is-swept-first")

	if _, ok := rl.buckets["old"]; ok {
		t.Fatalf("idle bucket survived the sweep")
	}
	if _, ok := rl.buckets["old-is-swept-first"]; !ok || rl.lookups != 0 {
		t.Fatalf("new bucket missing or counter not reset")
	}
}

func TestRateLimiter_Handler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(1, 1, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Header(requestIDHeader, "rid-1"); c.Next() })
	r.Use(func(c *gin.Context) {
		if c.Query("replay") == "1" {
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	})
	r.Use(rl.Handler())
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	hit := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	if w := hit("/ok"); w.Code != http.StatusOK {
		t.Fatalf("first = %d", w.Code)
	}
	w := hit("/ok")
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "1" {
		t.Fatalf("second = %d retry=%q", w.Code, w.Header().Get("Retry-After"))
	}
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["code"] != "too_many_requests" || body["request_id"] != "rid-1" {
		t.Fatalf("body = %v", body)
	}
	if w := hit("/ok?replay=1"); w.Code != http.StatusOK {
		t.Fatalf("replay should bypass, got %d", w.Code)
	}
}

func TestRateLimiter_ZeroRPSDisables(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewRateLimiter(0, 1, nil).Handler())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d limited", i)
		}
	}
}
