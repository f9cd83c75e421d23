// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides correlation IDs, the access log, panic recovery and the
// request-scoped logger:
//
//   - RequestID() reuses X-Request-ID or generates a UUID and echoes it back.
//   - AccessLog() attaches a request-scoped zerolog.Logger (to the Gin context
//     and to the request context, so services can use log.Ctx) and writes one
//     structured line per request once the handler chain returns. Query
//     strings, the user agent and header values pass through a Redactor.
//   - Recovery() converts panics into the JSON error envelope.
//
// Recommended order: RequestID, AccessLog, Recovery.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey      = "requestID"
	loggerKey         = "logger"
	requestIDHeader   = "X-Request-ID"
	maxQueryLogLength = 2048
)

// RequestID attaches (or propagates) a correlation identifier per request.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// AccessLog writes one structured log line per request.
//
// The level follows the outcome: error for 5xx or when handlers recorded Gin
// errors, warn for 4xx, info otherwise. The line is emitted through the
// request-scoped logger, so fields added downstream (user_id from Auth) are
// included.
func AccessLog(opts RedactOptions) gin.HandlerFunc {
	rd := NewRedactor(opts.MaskHeaders...)
	return func(c *gin.Context) {
		start := time.Now()

		rid, _ := c.Get(requestIDKey)
		l := log.With().
			Str("request_id", asString(rid)).
			Str("method", c.Request.Method).
			Str("path", routeOf(c)).
			Logger()
		attachLogger(c, l)

		c.Next()

		status := c.Writer.Status()
		lg := LoggerFrom(c)

		var ev *zerolog.Event
		switch {
		case len(c.Errors) > 0 || status >= http.StatusInternalServerError:
			ev = lg.Error()
		case status >= http.StatusBadRequest:
			ev = lg.Warn()
		default:
			ev = lg.Info()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.
			Str("query", truncate(rd.String(c.Request.URL.RawQuery), maxQueryLogLength)).
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", rd.String(c.Request.UserAgent())).
			Int64("bytes_in", c.Request.ContentLength).
			Int("status", status).
			Int("bytes_out", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", rd.Headers(c.Request.Header)).
			Msg("request")
	}
}

// Recovery intercepts panics, logs the stack and answers with the JSON error
// envelope when nothing has been written yet.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			abort(c, http.StatusInternalServerError, "internal_error", "internal server error")
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or the global logger when
// AccessLog is not installed. The result is never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.Logger
	return &l
}

// attachLogger stores l on the Gin context and on the request context.
func attachLogger(c *gin.Context, l zerolog.Logger) {
	c.Set(loggerKey, &l)
	c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))
}

// abort writes the {request_id, code, message} envelope and stops the chain.
func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}

// routeOf returns the matched route pattern or the raw path.
func routeOf(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// truncate caps s at n bytes; n <= 0 disables it.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
