// Package domain defines the persistence models for accounts, journal
// entries, habits, habit logs and the chat log. These types are mapped with
// GORM and shared by the repository, JSON store and service layers.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Chat roles stored in ChatMessage.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// DateLayout is the calendar-day format used for habit log dates.
const DateLayout = "2006-01-02"

// User is a registered account. Email and username are unique.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email: lower-cased login identifier.
//   - Username: display name, unique across accounts.
//   - PasswordHash: bcrypt hash; never serialized.
type User struct {
	ID           string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Email        string    `json:"email"      gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	Username     string    `json:"username"   gorm:"type:varchar(64);not null;uniqueIndex:ux_users_username"`
	PasswordHash string    `json:"-"          gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// JournalEntry is an immutable free-text note written by a user.
type JournalEntry struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);not null;index:idx_user_journals,priority:1"`
	Text      string    `json:"text"       gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_user_journals,priority:2"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for JournalEntry.
func (JournalEntry) TableName() string { return "journal_entries" }

// Habit is a named recurring activity tracked per calendar day. Names are
// not unique per user.
type Habit struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"    gorm:"type:char(36);not null;index:idx_user_habits"`
	Name      string         `json:"name"       gorm:"type:varchar(255);not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Habit.
func (Habit) TableName() string { return "habits" }

// HabitLog records whether a habit was completed on one calendar day.
// The composite primary key (habit_id, log_date) allows at most one row per
// day; writes go through an upsert on that key.
type HabitLog struct {
	HabitID   string    `json:"habit_id"   gorm:"type:char(36);primaryKey"`
	LogDate   string    `json:"log_date"   gorm:"type:char(10);primaryKey"`
	Completed bool      `json:"completed"  gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at"`

	Habit Habit `json:"-" gorm:"foreignKey:HabitID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for HabitLog.
func (HabitLog) TableName() string { return "habit_logs" }

// ChatMessage is one entry of a user's append-only chat log. The ID is
// monotonic so "most recent N" can be ordered by it.
type ChatMessage struct {
	ID        uint64    `json:"id"         gorm:"primaryKey;autoIncrement"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);not null;index:idx_user_chat,priority:1"`
	Role      string    `json:"role"       gorm:"type:varchar(16);not null;check:role IN ('user','assistant','system')"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_user_chat,priority:2"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChatMessage.
func (ChatMessage) TableName() string { return "chat_messages" }

// HabitLogRow is one row of the habit/log left join. LogDate and Completed
// are nil for habits that have never been logged.
type HabitLogRow struct {
	HabitID   string  `json:"habit_id"`
	HabitName string  `json:"habit_name"`
	LogDate   *string `json:"log_date"`
	Completed *bool   `json:"completed"`
}
