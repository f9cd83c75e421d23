package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Enforce FKs so cascades actually execute.
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(&User{}, &JournalEntry{}, &Habit{}, &HabitLog{}, &ChatMessage{}, &Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		User{}.TableName():         "users",
		JournalEntry{}.TableName(): "journal_entries",
		Habit{}.TableName():        "habits",
		HabitLog{}.TableName():     "habit_logs",
		ChatMessage{}.TableName():  "chat_messages",
		Idempotency{}.TableName():  "idempotency",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_Indexes(t *testing.T) {
	db := newDomainDB(t)
	m := db.Migrator()

	for _, tbl := range []any{&User{}, &JournalEntry{}, &Habit{}, &HabitLog{}, &ChatMessage{}, &Idempotency{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}
	checks := []struct {
		model any
		index string
	}{
		{&User{}, "ux_users_email"},
		{&User{}, "ux_users_username"},
		{&JournalEntry{}, "idx_user_journals"},
		{&Habit{}, "idx_user_habits"},
		{&ChatMessage{}, "idx_user_chat"},
		{&Idempotency{}, "ux_user_scope_key"},
	}
	for _, c := range checks {
		if !m.HasIndex(c.model, c.index) {
			t.Fatalf("expected index %s on %T", c.index, c.model)
		}
	}
}

func TestUniqueConstraints(t *testing.T) {
	db := newDomainDB(t)
	now := time.Now().UTC()

	if err := db.Create(&User{ID: "u1", Email: "a@x.io", Username: "a", PasswordHash: "h", CreatedAt: now}).Error; err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if err := db.Create(&User{ID: "u2", Email: "a@x.io", Username: "b", PasswordHash: "h"}).Error; err == nil {
		t.Fatalf("expected unique violation on email")
	}
	if err := db.Create(&User{ID: "u3", Email: "b@x.io", Username: "a", PasswordHash: "h"}).Error; err == nil {
		t.Fatalf("expected unique violation on username")
	}

	if err := db.Create(&Habit{ID: "h1", UserID: "u1", Name: "walk"}).Error; err != nil {
		t.Fatalf("insert habit: %v", err)
	}
	if err := db.Create(&HabitLog{HabitID: "h1", LogDate: "2024-01-01", Completed: true}).Error; err != nil {
		t.Fatalf("insert log: %v", err)
	}
	if err := db.Create(&HabitLog{HabitID: "h1", LogDate: "2024-01-01"}).Error; err == nil {
		t.Fatalf("expected duplicate (habit_id, log_date) to be rejected")
	}
}

func TestChatMessage_RoleCheckAndMonotonicIDs(t *testing.T) {
	db := newDomainDB(t)
	if err := db.Create(&User{ID: "u1", Email: "a@x.io", Username: "a", PasswordHash: "h"}).Error; err != nil {
		t.Fatalf("insert user: %v", err)
	}

	a := &ChatMessage{UserID: "u1", Role: RoleUser, Content: "A"}
	b := &ChatMessage{UserID: "u1", Role: RoleAssistant, Content: "B"}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("insert a: %v", err)
	}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("insert b: %v", err)
	}
	if a.ID == 0 || b.ID <= a.ID {
		t.Fatalf("ids should be monotonic: a=%d b=%d", a.ID, b.ID)
	}
	if err := db.Create(&ChatMessage{UserID: "u1", Role: "robot", Content: "x"}).Error; err == nil {
		t.Fatalf("expected role check constraint violation")
	}
}

func TestCascade_UserDeleteRemovesOwnedRows(t *testing.T) {
	db := newDomainDB(t)
	now := time.Now().UTC()

	if err := db.Create(&User{ID: "u1", Email: "a@x.io", Username: "a", PasswordHash: "h"}).Error; err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if err := db.Create(&JournalEntry{ID: "j1", UserID: "u1", Text: "hi", CreatedAt: now}).Error; err != nil {
		t.Fatalf("insert journal: %v", err)
	}
	if err := db.Create(&Habit{ID: "h1", UserID: "u1", Name: "walk"}).Error; err != nil {
		t.Fatalf("insert habit: %v", err)
	}
	if err := db.Create(&HabitLog{HabitID: "h1", LogDate: "2024-01-01", Completed: true}).Error; err != nil {
		t.Fatalf("insert log: %v", err)
	}

	if err := db.Delete(&User{}, "id = ?", "u1").Error; err != nil {
		t.Fatalf("delete user: %v", err)
	}
	var cnt int64
	db.Model(&JournalEntry{}).Count(&cnt)
	if cnt != 0 {
		t.Fatalf("journal entries should cascade, got %d", cnt)
	}
	db.Unscoped().Model(&Habit{}).Count(&cnt)
	if cnt != 0 {
		t.Fatalf("habits should cascade, got %d", cnt)
	}
	db.Model(&HabitLog{}).Count(&cnt)
	if cnt != 0 {
		t.Fatalf("habit logs should cascade, got %d", cnt)
	}
}
