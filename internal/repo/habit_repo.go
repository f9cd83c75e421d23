package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/mindmate-backend/internal/domain"
)

// CreateHabit inserts a habit owned by userID.
func CreateHabit(ctx context.Context, db *gorm.DB, userID, name string) (*domain.Habit, error) {
	now := time.Now().UTC()
	h := &domain.Habit{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(h).Error; err != nil {
		return nil, translate(err)
	}
	return h, nil
}

// ListHabits returns userID's habits in creation order.
func ListHabits(ctx context.Context, db *gorm.DB, userID string) ([]domain.Habit, error) {
	var out []domain.Habit
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// GetHabit fetches a habit by ID and owner. Habits owned by someone else are
// reported as ErrNotFound.
func GetHabit(ctx context.Context, db *gorm.DB, userID, id string) (*domain.Habit, error) {
	var h domain.Habit
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&h).Error
	if err != nil {
		return nil, translate(err)
	}
	return &h, nil
}

// UpsertHabitLog records completion for (habitID, date) as one INSERT ... ON
// CONFLICT statement, so concurrent toggles never produce two rows for the
// same day. The latest write wins.
func UpsertHabitLog(ctx context.Context, db *gorm.DB, habitID, date string, completed bool) error {
	row := &domain.HabitLog{
		HabitID:   habitID,
		LogDate:   date,
		Completed: completed,
		UpdatedAt: time.Now().UTC(),
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "habit_id"}, {Name: "log_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"completed", "updated_at"}),
		}).
		Create(row).Error
	return translate(err)
}

// ListHabitLogs left-joins userID's habits with their logs dated on or after
// sinceDate (YYYY-MM-DD). The date bound lives in the join condition, so a
// habit with no log in range still appears once with nil LogDate and
// Completed.
func ListHabitLogs(ctx context.Context, db *gorm.DB, userID, sinceDate string) ([]domain.HabitLogRow, error) {
	var rows []domain.HabitLogRow
	err := db.WithContext(ctx).
		Table("habits AS h").
		Select("h.id AS habit_id, h.name AS habit_name, l.log_date AS log_date, l.completed AS completed").
		Joins("LEFT JOIN habit_logs AS l ON l.habit_id = h.id AND l.log_date >= ?", sinceDate).
		Where("h.user_id = ? AND h.deleted_at IS NULL", userID).
		Order("h.name ASC, h.id ASC, l.log_date ASC").
		Scan(&rows).Error
	return rows, err
}
