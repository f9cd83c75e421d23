package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/mindmate-backend/internal/domain"
)

// SQLStore binds the repository free functions to a *gorm.DB so they satisfy
// the store interfaces consumed by the service layer.
type SQLStore struct {
	DB *gorm.DB
}

// NewSQLStore wraps db.
func NewSQLStore(db *gorm.DB) *SQLStore { return &SQLStore{DB: db} }

// CreateUser proxies CreateUser.
func (s *SQLStore) CreateUser(ctx context.Context, u *domain.User) error {
	return CreateUser(ctx, s.DB, u)
}

// GetUserByEmail proxies GetUserByEmail.
func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return GetUserByEmail(ctx, s.DB, email)
}

// GetUser proxies GetUser.
func (s *SQLStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return GetUser(ctx, s.DB, id)
}

// AddJournalEntry proxies CreateJournalEntry.
func (s *SQLStore) AddJournalEntry(ctx context.Context, userID, text string, at time.Time) (*domain.JournalEntry, error) {
	return CreateJournalEntry(ctx, s.DB, userID, text, at)
}

// ListJournalEntries proxies ListJournalEntries.
func (s *SQLStore) ListJournalEntries(ctx context.Context, userID string, since time.Time) ([]domain.JournalEntry, error) {
	return ListJournalEntries(ctx, s.DB, userID, since)
}

// JournalStats proxies JournalStats.
func (s *SQLStore) JournalStats(ctx context.Context, userID string, since time.Time) (int64, *time.Time, error) {
	return JournalStats(ctx, s.DB, userID, since)
}

// CreateHabit proxies CreateHabit.
func (s *SQLStore) CreateHabit(ctx context.Context, userID, name string) (*domain.Habit, error) {
	return CreateHabit(ctx, s.DB, userID, name)
}

// ListHabits proxies ListHabits.
func (s *SQLStore) ListHabits(ctx context.Context, userID string) ([]domain.Habit, error) {
	return ListHabits(ctx, s.DB, userID)
}

// GetHabit proxies GetHabit.
func (s *SQLStore) GetHabit(ctx context.Context, userID, habitID string) (*domain.Habit, error) {
	return GetHabit(ctx, s.DB, userID, habitID)
}

// UpsertHabitLog proxies UpsertHabitLog.
func (s *SQLStore) UpsertHabitLog(ctx context.Context, habitID, date string, completed bool) error {
	return UpsertHabitLog(ctx, s.DB, habitID, date, completed)
}

// ListHabitLogs proxies ListHabitLogs.
func (s *SQLStore) ListHabitLogs(ctx context.Context, userID, sinceDate string) ([]domain.HabitLogRow, error) {
	return ListHabitLogs(ctx, s.DB, userID, sinceDate)
}

// AppendChatMessage proxies AppendChatMessage.
func (s *SQLStore) AppendChatMessage(ctx context.Context, userID, role, content string) (*domain.ChatMessage, error) {
	return AppendChatMessage(ctx, s.DB, userID, role, content)
}

// AppendExchange persists the user prompt and the assistant reply, in that
// order, plus the optional idempotency record, inside one transaction. It
// returns the stored assistant message.
func (s *SQLStore) AppendExchange(ctx context.Context, userID, prompt, reply string, claim *domain.IdempotencyClaim) (*domain.ChatMessage, error) {
	var assistant *domain.ChatMessage
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := AppendChatMessage(ctx, tx, userID, domain.RoleUser, prompt); err != nil {
			return err
		}
		m, err := AppendChatMessage(ctx, tx, userID, domain.RoleAssistant, reply)
		if err != nil {
			return err
		}
		assistant = m

		if claim != nil && claim.Key != "" {
			// An expired record still holds the unique key.
			if err := tx.Where("user_id = ? AND scope = ? AND idem_key = ? AND expires_at <= ?",
				userID, claim.Scope, claim.Key, time.Now().UTC()).
				Delete(&domain.Idempotency{}).Error; err != nil {
				return err
			}
			if _, err := CreateIdempotency(ctx, tx, userID, claim.Scope, claim.Key, m.ID, claim.Status, claim.TTL); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assistant, nil
}

// ListRecentChatMessages proxies ListRecentChatMessages.
func (s *SQLStore) ListRecentChatMessages(ctx context.Context, userID string, limit int) ([]domain.ChatMessage, error) {
	return ListRecentChatMessages(ctx, s.DB, userID, limit)
}

// GetChatMessage proxies GetChatMessage.
func (s *SQLStore) GetChatMessage(ctx context.Context, userID string, id uint64) (*domain.ChatMessage, error) {
	return GetChatMessage(ctx, s.DB, userID, id)
}

// GetIdempotency proxies GetIdempotency.
func (s *SQLStore) GetIdempotency(ctx context.Context, userID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	return GetIdempotency(ctx, s.DB, userID, scope, key, now)
}

// PurgeExpiredIdempotency proxies PurgeExpiredIdempotency.
func (s *SQLStore) PurgeExpiredIdempotency(ctx context.Context, now time.Time) (int64, error) {
	return PurgeExpiredIdempotency(ctx, s.DB, now)
}

// Ping checks database connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
