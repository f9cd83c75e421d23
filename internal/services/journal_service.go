package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/mindmate-backend/internal/domain"
)

// Journal listing windows, in days.
const (
	DefaultJournalDays = 30
	MaxJournalDays     = 365
)

// MaxEntryRunes caps a single journal entry.
const MaxEntryRunes = 10000

// ContextInvalidator drops a user's cached personalization block.
type ContextInvalidator interface {
	Invalidate(ctx context.Context, userID string)
}

// JournalService writes and reads journal entries.
type JournalService struct {
	Store       JournalStore
	Invalidator ContextInvalidator // optional
	Now         func() time.Time
}

// NewJournalService returns a JournalService using UTC wall time.
func NewJournalService(store JournalStore, inv ContextInvalidator) *JournalService {
	return &JournalService{Store: store, Invalidator: inv, Now: func() time.Time { return time.Now().UTC() }}
}

// Add stores a new entry. Text is trimmed and NFC-normalized; inner line
// breaks are kept.
func (s *JournalService) Add(ctx context.Context, userID, text string) (*domain.JournalEntry, error) {
	tr := otel.Tracer("services/JournalService")
	ctx, span := tr.Start(ctx, "Add", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	text = norm.NFC.String(strings.TrimSpace(text))
	if text == "" {
		return nil, ErrEmptyEntry
	}
	if utf8.RuneCountInString(text) > MaxEntryRunes {
		return nil, ErrEntryTooLong
	}

	e, err := s.Store.AddJournalEntry(ctx, userID, text, s.now())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if s.Invalidator != nil {
		s.Invalidator.Invalidate(ctx, userID)
	}
	return e, nil
}

// List returns entries from the last days days, newest first.
func (s *JournalService) List(ctx context.Context, userID string, days int) ([]domain.JournalEntry, error) {
	days = ClampWindow(days, DefaultJournalDays, MaxJournalDays)
	tr := otel.Tracer("services/JournalService")
	ctx, span := tr.Start(ctx, "List", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.Int("days", days),
	))
	defer span.End()

	return s.Store.ListJournalEntries(ctx, userID, s.now().AddDate(0, 0, -days))
}

// Stats returns the entry count and newest timestamp for the same window as
// List; handlers derive a weak ETag from it.
func (s *JournalService) Stats(ctx context.Context, userID string, days int) (int64, *time.Time, error) {
	days = ClampWindow(days, DefaultJournalDays, MaxJournalDays)
	return s.Store.JournalStats(ctx, userID, s.now().AddDate(0, 0, -days))
}

func (s *JournalService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// ClampWindow applies def to non-positive values and caps at upper.
func ClampWindow(n, def, upper int) int {
	if n <= 0 {
		return def
	}
	if n > upper {
		return upper
	}
	return n
}
