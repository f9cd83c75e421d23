package services

import (
	"context"
	"time"

	"github.com/tbourn/mindmate-backend/internal/domain"
)

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// JournalStore persists journal entries.
type JournalStore interface {
	AddJournalEntry(ctx context.Context, userID, text string, at time.Time) (*domain.JournalEntry, error)
	// ListJournalEntries returns entries created at or after since, newest first.
	ListJournalEntries(ctx context.Context, userID string, since time.Time) ([]domain.JournalEntry, error)
	JournalStats(ctx context.Context, userID string, since time.Time) (int64, *time.Time, error)
}

// HabitStore persists habits and their per-day logs.
type HabitStore interface {
	CreateHabit(ctx context.Context, userID, name string) (*domain.Habit, error)
	ListHabits(ctx context.Context, userID string) ([]domain.Habit, error)
	GetHabit(ctx context.Context, userID, habitID string) (*domain.Habit, error)
	// UpsertHabitLog atomically inserts or replaces the log for (habitID, date).
	UpsertHabitLog(ctx context.Context, habitID, date string, completed bool) error
	// ListHabitLogs left-joins the user's habits with logs dated on or after
	// sinceDate; never-logged habits appear with nil LogDate and Completed.
	ListHabitLogs(ctx context.Context, userID, sinceDate string) ([]domain.HabitLogRow, error)
}

// ChatStore persists the append-only chat log and idempotency records.
type ChatStore interface {
	AppendChatMessage(ctx context.Context, userID, role, content string) (*domain.ChatMessage, error)
	// AppendExchange stores the prompt then the reply (and the optional claim)
	// atomically and returns the stored reply.
	AppendExchange(ctx context.Context, userID, prompt, reply string, claim *domain.IdempotencyClaim) (*domain.ChatMessage, error)
	// ListRecentChatMessages returns the newest limit messages, oldest first.
	ListRecentChatMessages(ctx context.Context, userID string, limit int) ([]domain.ChatMessage, error)
	GetChatMessage(ctx context.Context, userID string, id uint64) (*domain.ChatMessage, error)
	GetIdempotency(ctx context.Context, userID, scope, key string, now time.Time) (*domain.Idempotency, error)
}

// ContextSource is the read side the context builder needs.
type ContextSource interface {
	ListJournalEntries(ctx context.Context, userID string, since time.Time) ([]domain.JournalEntry, error)
	ListHabitLogs(ctx context.Context, userID, sinceDate string) ([]domain.HabitLogRow, error)
}

// Store is implemented by every persistence backend (SQL and JSON file).
type Store interface {
	UserStore
	JournalStore
	HabitStore
	ChatStore
	Ping(ctx context.Context) error
	Close() error
}
