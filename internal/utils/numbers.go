// Package utils provides small helpers shared by the HTTP layer that carry
// no domain logic.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault parses s as a decimal int, returning def when s is blank or
// not a valid int. Surrounding whitespace is ignored.
func AtoiDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ParseID parses a positive decimal identifier.
func ParseID(s string) (uint64, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}
