package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func serveWith(mw gin.HandlerFunc, pre gin.HandlerFunc, req *http.Request) http.Header {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if pre != nil {
		r.Use(pre)
	}
	r.Use(mw)
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Header()
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	h := serveWith(SecurityHeaders(SecurityOptions{}), nil, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if h.Get("X-Content-Type-Options") != "nosniff" || h.Get("X-Frame-Options") != "DENY" || h.Get("Referrer-Policy") != "no-referrer" {
		t.Fatalf("baseline missing: %v", h)
	}
	if h.Get("Permissions-Policy") != "" || h.Get("Strict-Transport-Security") != "" || h.Get("Access-Control-Expose-Headers") != "" {
		t.Fatalf("unexpected optional headers: %v", h)
	}
}

func TestSecurityHeaders_PolicyAndHSTS(t *testing.T) {
	opts := SecurityOptions{EnableHSTS: true, HSTSMaxAge: time.Hour, EnablePolicy: true}

	plain := serveWith(SecurityHeaders(opts), nil, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if plain.Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS on plain HTTP")
	}
	if plain.Get("X-Permitted-Cross-Domain-Policies") != "none" {
		t.Fatalf("policy headers missing")
	}

	proxied := httptest.NewRequest(http.MethodGet, "/ok", nil)
	proxied.Header.Set("X-Forwarded-Proto", "HTTPS")
	if got := serveWith(SecurityHeaders(opts), nil, proxied).Get("Strict-Transport-Security"); got != "max-age=3600; includeSubDomains; preload" {
		t.Fatalf("HSTS = %q", got)
	}

	direct := httptest.NewRequest(http.MethodGet, "/ok", nil)
	direct.TLS = &tls.ConnectionState{}
	if got := serveWith(SecurityHeaders(SecurityOptions{EnableHSTS: true}), nil, direct).Get("Strict-Transport-Security"); got != "max-age=15552000; includeSubDomains; preload" {
		t.Fatalf("default HSTS = %q", got)
	}
}

func TestSecurityHeaders_ExposesRequestID(t *testing.T) {
	cases := []struct{ existing, want string }{
		{"", "X-Request-ID"},
		{"Foo", "Foo, X-Request-ID"},
		{"X-Request-ID, Foo", "X-Request-ID, Foo"},
	}
	for _, c := range cases {
		pre := func(ctx *gin.Context) {
			ctx.Header(requestIDHeader, "rid")
			if c.existing != "" {
				ctx.Header("Access-Control-Expose-Headers", c.existing)
			}
			ctx.Next()
		}
		h := serveWith(SecurityHeaders(SecurityOptions{}), pre, httptest.NewRequest(http.MethodGet, "/ok", nil))
		if got := h.Get("Access-Control-Expose-Headers"); got != c.want {
			t.Errorf("existing %q: got %q want %q", c.existing, got, c.want)
		}
	}
}

func TestPrivateCache(t *testing.T) {
	h := serveWith(PrivateCache(), nil, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if h.Get("Cache-Control") != "private, no-cache" {
		t.Fatalf("Cache-Control = %q", h.Get("Cache-Control"))
	}
}
