package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/mindmate-backend/internal/domain"
)

// Re-exported storage errors so callers holding only a repo import can
// branch on them.
var (
	ErrNotFound  = domain.ErrNotFound
	ErrDuplicate = domain.ErrDuplicate
)

// translate maps driver and GORM errors onto the shared storage errors.
// Unknown errors are returned unchanged.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isUniqueViolation(err):
		return ErrDuplicate
	}
	return err
}

// isUniqueViolation recognizes unique-constraint failures across drivers.
// glebarez/sqlite often returns plain-text errors that GORM cannot translate.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key value") ||
		strings.Contains(low, "duplicate entry")
}
