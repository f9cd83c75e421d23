package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/mindmate-backend/internal/domain"
)

// Habit progress windows, in days.
const (
	DefaultProgressDays = 14
	MaxProgressDays     = 365
)

// MaxHabitNameRunes caps habit names.
const MaxHabitNameRunes = 100

// HabitService manages habits and their daily completion logs.
type HabitService struct {
	Store       HabitStore
	Invalidator ContextInvalidator // optional
	Now         func() time.Time
}

// NewHabitService returns a HabitService using UTC wall time.
func NewHabitService(store HabitStore, inv ContextInvalidator) *HabitService {
	return &HabitService{Store: store, Invalidator: inv, Now: func() time.Time { return time.Now().UTC() }}
}

// NormalizeHabitName trims, collapses inner whitespace and NFC-normalizes.
func NormalizeHabitName(name string) string {
	return strings.Join(strings.Fields(norm.NFC.String(name)), " ")
}

// Create adds a habit. Names need not be unique.
func (s *HabitService) Create(ctx context.Context, userID, name string) (*domain.Habit, error) {
	tr := otel.Tracer("services/HabitService")
	ctx, span := tr.Start(ctx, "Create", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	name = NormalizeHabitName(name)
	if name == "" {
		return nil, ErrEmptyHabitName
	}
	if utf8.RuneCountInString(name) > MaxHabitNameRunes {
		return nil, ErrHabitNameTooLong
	}
	h, err := s.Store.CreateHabit(ctx, userID, name)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.invalidate(ctx, userID)
	return h, nil
}

// List returns the user's habits, oldest first.
func (s *HabitService) List(ctx context.Context, userID string) ([]domain.Habit, error) {
	ctx, span := otel.Tracer("services/HabitService").Start(ctx, "List",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()
	return s.Store.ListHabits(ctx, userID)
}

// Toggle records completed for habitID on date (YYYY-MM-DD; empty means
// today in UTC). The write is a single upsert, so repeated or concurrent
// toggles leave exactly one row per day.
func (s *HabitService) Toggle(ctx context.Context, userID, habitID, date string, completed bool) (*domain.HabitLog, error) {
	tr := otel.Tracer("services/HabitService")
	ctx, span := tr.Start(ctx, "Toggle", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("habit.id", habitID),
		attribute.Bool("completed", completed),
	))
	defer span.End()

	now := s.now()
	day, err := ParseLogDate(date, now)
	if err != nil {
		return nil, err
	}

	if _, err := s.Store.GetHabit(ctx, userID, habitID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrHabitNotFound
		}
		span.RecordError(err)
		return nil, err
	}
	if err := s.Store.UpsertHabitLog(ctx, habitID, day, completed); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.invalidate(ctx, userID)
	return &domain.HabitLog{HabitID: habitID, LogDate: day, Completed: completed, UpdatedAt: now}, nil
}

// Progress returns the raw left-joined habit/log rows of the last days days
// for charting. Never-logged habits appear once with nil date.
func (s *HabitService) Progress(ctx context.Context, userID string, days int) ([]domain.HabitLogRow, error) {
	days = ClampWindow(days, DefaultProgressDays, MaxProgressDays)
	ctx, span := otel.Tracer("services/HabitService").Start(ctx, "Progress", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.Int("days", days),
	))
	defer span.End()

	since := s.now().AddDate(0, 0, -days).Format(domain.DateLayout)
	return s.Store.ListHabitLogs(ctx, userID, since)
}

// ParseLogDate validates a YYYY-MM-DD date; empty yields now's date.
func ParseLogDate(date string, now time.Time) (string, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return now.UTC().Format(domain.DateLayout), nil
	}
	t, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return "", ErrInvalidDate
	}
	return t.Format(domain.DateLayout), nil
}

func (s *HabitService) invalidate(ctx context.Context, userID string) {
	if s.Invalidator != nil {
		s.Invalidator.Invalidate(ctx, userID)
	}
}

func (s *HabitService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
