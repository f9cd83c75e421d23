package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tbourn/mindmate-backend/internal/domain"
	"github.com/tbourn/mindmate-backend/internal/repo"
)

// newTestStore opens a migrated SQLite file under t.TempDir.
func newTestStore(t *testing.T) *repo.SQLStore {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "svc.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	s := repo.NewSQLStore(db)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustUser(t *testing.T, s *repo.SQLStore, name string) *domain.User {
	t.Helper()
	u := &domain.User{Email: name + "@example.com", Username: name, PasswordHash: "x"}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func fixedNow(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

// fakeSource serves canned rows and records the windows it was asked for.
type fakeSource struct {
	entries   []domain.JournalEntry
	rows      []domain.HabitLogRow
	err       error
	calls     int
	since     time.Time
	sinceDate string
}

func (f *fakeSource) ListJournalEntries(_ context.Context, _ string, since time.Time) ([]domain.JournalEntry, error) {
	f.calls++
	f.since = since
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

func (f *fakeSource) ListHabitLogs(_ context.Context, _ string, sinceDate string) ([]domain.HabitLogRow, error) {
	f.sinceDate = sinceDate
	return f.rows, nil
}

// memCache is an in-process ContextCache.
type memCache struct {
	mu   sync.Mutex
	m    map[string]string
	sets int
	dels int
}

func newMemCache() *memCache { return &memCache{m: map[string]string{}} }

func (c *memCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *memCache) Set(_ context.Context, key, value string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.m[key] = value
}

func (c *memCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dels++
	delete(c.m, key)
}
