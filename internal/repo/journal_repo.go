package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/mindmate-backend/internal/domain"
)

// CreateJournalEntry inserts an immutable journal entry for userID.
// A zero createdAt is replaced with the current UTC time.
func CreateJournalEntry(ctx context.Context, db *gorm.DB, userID, text string, createdAt time.Time) (*domain.JournalEntry, error) {
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	e := &domain.JournalEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Text:      text,
		CreatedAt: createdAt.UTC(),
	}
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, translate(err)
	}
	return e, nil
}

// ListJournalEntries returns the entries userID wrote at or after since,
// newest first. Ties on created_at are broken by id for a stable order.
func ListJournalEntries(ctx context.Context, db *gorm.DB, userID string, since time.Time) ([]domain.JournalEntry, error) {
	var out []domain.JournalEntry
	err := db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since.UTC()).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}
