// Package jsonstore is a single-file JSON persistence backend for local,
// single-process use. The whole document is held in memory and rewritten on
// every mutation (temp file plus rename). A mutex serializes access, so the
// per-day habit upsert and the chat exchange append are atomic within the
// process.
package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/mindmate-backend/internal/domain"
)

const version = 1

type userRecord struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

type journalRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type habitRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type habitLogRecord struct {
	Completed bool      `json:"completed"`
	UpdatedAt time.Time `json:"updated_at"`
}

type chatRecord struct {
	ID        uint64    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type idemRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Scope     string    `json:"scope"`
	Key       string    `json:"key"`
	MessageID uint64    `json:"message_id"`
	Status    int       `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type document struct {
	Version  int                      `json:"version"`
	Users    map[string]userRecord    `json:"users"`
	Journals map[string]journalRecord `json:"journal_entries"`
	Habits   map[string]habitRecord   `json:"habits"`
	// habit id -> YYYY-MM-DD -> log
	HabitLogs     map[string]map[string]habitLogRecord `json:"habit_logs"`
	Messages      []chatRecord                         `json:"chat_messages"`
	NextMessageID uint64                               `json:"next_message_id"`
	// user id + scope + key -> record
	Idempotency map[string]idemRecord `json:"idempotency"`
}

func newDocument() *document {
	d := &document{Version: version, NextMessageID: 1}
	d.ensure()
	return d
}

func (d *document) ensure() {
	if d.Users == nil {
		d.Users = make(map[string]userRecord)
	}
	if d.Journals == nil {
		d.Journals = make(map[string]journalRecord)
	}
	if d.Habits == nil {
		d.Habits = make(map[string]habitRecord)
	}
	if d.HabitLogs == nil {
		d.HabitLogs = make(map[string]map[string]habitLogRecord)
	}
	if d.Idempotency == nil {
		d.Idempotency = make(map[string]idemRecord)
	}
	if d.NextMessageID == 0 {
		d.NextMessageID = 1
	}
}

// Store implements services.Store on top of one JSON file.
type Store struct {
	mu   sync.RWMutex
	path string
	doc  *document
	last []byte // last successfully written document
	now  func() time.Time
}

// Open loads path, creating the file and its directory when missing.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	s := &Store{path: path, now: func() time.Time { return time.Now().UTC() }}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		s.doc = newDocument()
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read store: %w", err)
	}

	doc := &document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse store: %w", err)
	}
	if doc.Version > version {
		return nil, fmt.Errorf("store version %d is newer than supported %d", doc.Version, version)
	}
	doc.ensure()
	s.doc, s.last = doc, data
	return s, nil
}

// save writes the document atomically.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write store: %w", err)
	}
	s.last = data
	return nil
}

// mutate applies fn and persists the result. On any failure the in-memory
// document is restored to the last saved state.
func (s *Store) mutate(fn func(d *document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s.doc); err != nil {
		s.rollback()
		return err
	}
	if err := s.save(); err != nil {
		s.rollback()
		return err
	}
	return nil
}

func (s *Store) rollback() {
	if s.last == nil {
		s.doc = newDocument()
		return
	}
	doc := &document{}
	if err := json.Unmarshal(s.last, doc); err == nil {
		doc.ensure()
		s.doc = doc
	}
}

func (s *Store) read(fn func(d *document)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.doc)
}

// Ping reports whether the backing file is still reachable.
func (s *Store) Ping(context.Context) error {
	_, err := os.Stat(s.path)
	return err
}

// Close is a no-op; every mutation is already on disk.
func (s *Store) Close() error { return nil }

// ---- users ----

// CreateUser inserts u, enforcing unique email and username.
func (s *Store) CreateUser(_ context.Context, u *domain.User) error {
	return s.mutate(func(d *document) error {
		for _, other := range d.Users {
			if strings.EqualFold(other.Email, u.Email) || other.Username == u.Username {
				return domain.ErrDuplicate
			}
		}
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		if u.CreatedAt.IsZero() {
			u.CreatedAt = s.now()
		}
		d.Users[u.ID] = userRecord{
			ID: u.ID, Email: u.Email, Username: u.Username,
			PasswordHash: u.PasswordHash, CreatedAt: u.CreatedAt,
		}
		return nil
	})
}

// GetUserByEmail looks an account up by normalized email.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	var out *domain.User
	s.read(func(d *document) {
		for _, r := range d.Users {
			if r.Email == email {
				out = r.toDomain()
				return
			}
		}
	})
	if out == nil {
		return nil, domain.ErrNotFound
	}
	return out, nil
}

// GetUser looks an account up by id.
func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	var out *domain.User
	s.read(func(d *document) {
		if r, ok := d.Users[id]; ok {
			out = r.toDomain()
		}
	})
	if out == nil {
		return nil, domain.ErrNotFound
	}
	return out, nil
}

func (r userRecord) toDomain() *domain.User {
	return &domain.User{ID: r.ID, Email: r.Email, Username: r.Username, PasswordHash: r.PasswordHash, CreatedAt: r.CreatedAt}
}

// ---- journals ----

// AddJournalEntry appends an entry for userID.
func (s *Store) AddJournalEntry(_ context.Context, userID, text string, at time.Time) (*domain.JournalEntry, error) {
	e := journalRecord{ID: uuid.NewString(), UserID: userID, Text: text, CreatedAt: at.UTC()}
	err := s.mutate(func(d *document) error {
		if _, ok := d.Users[userID]; !ok {
			return domain.ErrNotFound
		}
		d.Journals[e.ID] = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.toDomain(), nil
}

// ListJournalEntries returns userID's entries at or after since, newest first.
func (s *Store) ListJournalEntries(_ context.Context, userID string, since time.Time) ([]domain.JournalEntry, error) {
	out := []domain.JournalEntry{}
	s.read(func(d *document) {
		for _, r := range d.Journals {
			if r.UserID == userID && !r.CreatedAt.Before(since) {
				out = append(out, *r.toDomain())
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// JournalStats returns the count and newest timestamp of entries since since.
func (s *Store) JournalStats(ctx context.Context, userID string, since time.Time) (int64, *time.Time, error) {
	es, _ := s.ListJournalEntries(ctx, userID, since)
	if len(es) == 0 {
		return 0, nil, nil
	}
	latest := es[0].CreatedAt
	return int64(len(es)), &latest, nil
}

func (r journalRecord) toDomain() *domain.JournalEntry {
	return &domain.JournalEntry{ID: r.ID, UserID: r.UserID, Text: r.Text, CreatedAt: r.CreatedAt}
}

// ---- habits ----

// CreateHabit adds a habit for userID.
func (s *Store) CreateHabit(_ context.Context, userID, name string) (*domain.Habit, error) {
	now := s.now()
	h := habitRecord{ID: uuid.NewString(), UserID: userID, Name: name, CreatedAt: now, UpdatedAt: now}
	err := s.mutate(func(d *document) error {
		if _, ok := d.Users[userID]; !ok {
			return domain.ErrNotFound
		}
		d.Habits[h.ID] = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return h.toDomain(), nil
}

// ListHabits returns userID's habits, oldest first.
func (s *Store) ListHabits(_ context.Context, userID string) ([]domain.Habit, error) {
	out := []domain.Habit{}
	s.read(func(d *document) {
		for _, r := range d.Habits {
			if r.UserID == userID {
				out = append(out, *r.toDomain())
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetHabit returns habitID when it belongs to userID.
func (s *Store) GetHabit(_ context.Context, userID, habitID string) (*domain.Habit, error) {
	var out *domain.Habit
	s.read(func(d *document) {
		if r, ok := d.Habits[habitID]; ok && r.UserID == userID {
			out = r.toDomain()
		}
	})
	if out == nil {
		return nil, domain.ErrNotFound
	}
	return out, nil
}

// UpsertHabitLog sets the completion for (habitID, date), replacing any
// existing value for that day.
func (s *Store) UpsertHabitLog(_ context.Context, habitID, date string, completed bool) error {
	return s.mutate(func(d *document) error {
		if _, ok := d.Habits[habitID]; !ok {
			return domain.ErrNotFound
		}
		logs := d.HabitLogs[habitID]
		if logs == nil {
			logs = make(map[string]habitLogRecord)
			d.HabitLogs[habitID] = logs
		}
		logs[date] = habitLogRecord{Completed: completed, UpdatedAt: s.now()}
		return nil
	})
}

// ListHabitLogs mirrors the SQL left join: one row per log dated on or
// after sinceDate, plus one nil-dated row for each habit without such logs.
// Rows are ordered by habit name, habit id, then date.
func (s *Store) ListHabitLogs(_ context.Context, userID, sinceDate string) ([]domain.HabitLogRow, error) {
	out := []domain.HabitLogRow{}
	s.read(func(d *document) {
		habits := make([]habitRecord, 0)
		for _, h := range d.Habits {
			if h.UserID == userID {
				habits = append(habits, h)
			}
		}
		sort.Slice(habits, func(i, j int) bool {
			if habits[i].Name != habits[j].Name {
				return habits[i].Name < habits[j].Name
			}
			return habits[i].ID < habits[j].ID
		})

		for _, h := range habits {
			dates := make([]string, 0, len(d.HabitLogs[h.ID]))
			for date := range d.HabitLogs[h.ID] {
				if date >= sinceDate {
					dates = append(dates, date)
				}
			}
			if len(dates) == 0 {
				out = append(out, domain.HabitLogRow{HabitID: h.ID, HabitName: h.Name})
				continue
			}
			sort.Strings(dates)
			for _, date := range dates {
				date := date
				done := d.HabitLogs[h.ID][date].Completed
				out = append(out, domain.HabitLogRow{HabitID: h.ID, HabitName: h.Name, LogDate: &date, Completed: &done})
			}
		}
	})
	return out, nil
}

func (r habitRecord) toDomain() *domain.Habit {
	return &domain.Habit{ID: r.ID, UserID: r.UserID, Name: r.Name, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}
