package middleware

import (
	"net/http"
	"regexp"
	"strings"
)

// RedactOptions configures the access log scrubbing.
//
// MaskHeaders lists extra header names (case-insensitive) whose values are
// replaced entirely; Authorization, Cookie and Set-Cookie are always masked.
type RedactOptions struct {
	MaskHeaders []string
}

// UUIDs go first so the phone pattern cannot eat their digit groups.
var (
	uuidRE   = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`)
	emailRE  = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE  = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
	secretRE = regexp.MustCompile(`(?i)\b(token|password|secret|api_key)=[^&\s]*`)
)

// Redactor scrubs identifiers and credentials from strings and headers.
// It is safe for concurrent use.
type Redactor struct {
	masked map[string]struct{}
}

// NewRedactor returns a Redactor masking the default sensitive headers plus extra.
func NewRedactor(extra ...string) *Redactor {
	m := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range extra {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			m[h] = struct{}{}
		}
	}
	return &Redactor{masked: m}
}

// String replaces credentials, UUIDs, emails and phone numbers in s.
func (r *Redactor) String(s string) string {
	if s == "" {
		return s
	}
	s = secretRE.ReplaceAllString(s, "$1=[REDACTED]")
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// Headers flattens h into a loggable map with masked and scrubbed values.
func (r *Redactor) Headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := r.masked[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = r.String(strings.Join(vv, ", "))
	}
	return out
}
