// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file holds the aggregate behind the journal list ETag.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/mindmate-backend/internal/domain"
)

// JournalStats returns the number of journal entries userID wrote at or
// after since, and the newest CreatedAt among them (nil when there are none).
func JournalStats(ctx context.Context, db *gorm.DB, userID string, since time.Time) (count int64, latest *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.JournalEntry{}).
		Where("user_id = ? AND created_at >= ?", userID, since.UTC())
	return countAndLatest(q, "created_at")
}

func countAndLatest(q *gorm.DB, column string) (int64, *time.Time, error) {
	var count int64
	if err := q.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get the latest timestamp (avoid MAX() -> TEXT in SQLite)
	var ts []time.Time
	if err := q.Session(&gorm.Session{}).Order(column+" DESC").Limit(1).Pluck(column, &ts).Error; err != nil {
		return 0, nil, err
	}
	if len(ts) == 0 {
		return count, nil, nil
	}
	latest := ts[0].UTC()
	return count, &latest, nil
}
