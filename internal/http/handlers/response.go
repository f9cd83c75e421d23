// Package handlers provides HTTP handler implementations for the public API.
//
// This file holds the shared response plumbing: the error envelope, the
// mapping from service errors to statuses, and weak ETag helpers.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/mindmate-backend/internal/http/middleware"
	"github.com/tbourn/mindmate-backend/internal/services"
)

// User-facing messages for account failures.
const (
	MsgAccountExists      = "Email or username already exists."
	MsgInvalidCredentials = "Invalid email or password."
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"habit not found"`
}

// fail aborts with the error envelope. 5xx responses are logged through the
// request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail for the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failFrom translates a service error. Unknown errors become a 500 whose
// cause is attached to the Gin context (and so to the access log) but never
// to the response.
func failFrom(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrInvalidUsername),
		errors.Is(err, services.ErrWeakPassword),
		errors.Is(err, services.ErrPasswordTooLong),
		errors.Is(err, services.ErrEmptyEntry),
		errors.Is(err, services.ErrEntryTooLong),
		errors.Is(err, services.ErrEmptyHabitName),
		errors.Is(err, services.ErrHabitNameTooLong),
		errors.Is(err, services.ErrInvalidDate),
		errors.Is(err, services.ErrEmptyPrompt),
		errors.Is(err, services.ErrTooLong):
		fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, services.ErrAccountExists):
		fail(c, http.StatusConflict, ErrCodeConflict, MsgAccountExists)
	case errors.Is(err, services.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, ErrCodeInvalidLogin, MsgInvalidCredentials)
	case errors.Is(err, services.ErrInvalidToken):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid or expired token")
	case errors.Is(err, services.ErrHabitNotFound),
		errors.Is(err, services.ErrMessageNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}

// weakETag formats a weak validator from its parts, e.g. W/"journals:u1:30:4:1704067200".
func weakETag(parts ...any) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = fmt.Sprint(p)
	}
	return `W/"` + strings.Join(s, ":") + `"`
}

// notModified sets ETag and reports whether If-None-Match already holds it
// (weak comparison; "*" matches anything).
func notModified(c *gin.Context, etag string) bool {
	c.Header("ETag", etag)
	inm := c.GetHeader("If-None-Match")
	if inm == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, cand := range strings.Split(inm, ",") {
		cand = strings.TrimSpace(cand)
		if cand == "*" || strings.TrimPrefix(cand, "W/") == want {
			return true
		}
	}
	return false
}
