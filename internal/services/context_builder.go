// Package services – ContextBuilder
//
// This file turns a user's recent journal entries and habit logs into the
// short personalization block injected before each chat turn. The pure
// helpers (JournalBullet, SummarizeHabits, RenderContext) carry all the
// formatting rules; ContextBuilder fetches the inputs and caches the result.
package services

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/mindmate-backend/internal/domain"
)

// Placeholders substituted when a section has no data.
const (
	NoJournalEntries = "no journal entries"
	NoRecentHabits   = "no recent habit data"
	NoHabitsYet      = "no habits yet"
)

// ContextUnavailable fills both sections when the block could not be built.
const ContextUnavailable = "unavailable right now"

// JournalSnippetRunes caps each journal bullet before the ellipsis.
const JournalSnippetRunes = 220

const ellipsis = "..."

var lineBreaksRE = regexp.MustCompile(`[\r\n]+`)

// ContextOptions controls the lookback windows and size of the block.
type ContextOptions struct {
	// JournalDays is how far back journal entries are read.
	JournalDays int
	// HabitQueryDays is how far back habit logs are fetched.
	HabitQueryDays int
	// HabitRateDays is the window completion rates are computed over.
	HabitRateDays int
	// CountUnlogged keeps never-logged habits in the rates, as a 0% day
	// dated today. When false they are left out.
	CountUnlogged bool
	// MaxRunes bounds the rendered block; <= 0 disables the bound.
	MaxRunes int
}

// DefaultContextOptions returns the standard windows: 7 days of journals,
// 14 days of habit logs, rates over the last 7 days.
func DefaultContextOptions() ContextOptions {
	return ContextOptions{
		JournalDays:    7,
		HabitQueryDays: 14,
		HabitRateDays:  7,
		CountUnlogged:  true,
		MaxRunes:       4000,
	}
}

// ContextCache stores rendered blocks. Implementations must treat every
// failure as a miss.
type ContextCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// ContextBuilder produces the personalization block for a user.
type ContextBuilder struct {
	Source   ContextSource
	Cache    ContextCache // optional
	CacheTTL time.Duration
	Opts     ContextOptions
	Now      func() time.Time
}

// NewContextBuilder constructs a builder with DefaultContextOptions.
func NewContextBuilder(src ContextSource) *ContextBuilder {
	return &ContextBuilder{
		Source:   src,
		CacheTTL: 10 * time.Minute,
		Opts:     DefaultContextOptions(),
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// Build returns the personalization block for userID. Empty data degrades
// to placeholders; only store failures are returned as errors.
func (b *ContextBuilder) Build(ctx context.Context, userID string) (string, error) {
	tr := otel.Tracer("services/ContextBuilder")
	ctx, span := tr.Start(ctx, "Build",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	now := b.now()
	key := b.cacheKey(userID, now)
	if b.Cache != nil {
		if v, ok := b.Cache.Get(ctx, key); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return v, nil
		}
	}

	opts := b.Opts
	entries, err := b.Source.ListJournalEntries(ctx, userID, now.AddDate(0, 0, -opts.JournalDays))
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	sinceDate := now.AddDate(0, 0, -opts.HabitQueryDays).Format(domain.DateLayout)
	rows, err := b.Source.ListHabitLogs(ctx, userID, sinceDate)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	bullets := make([]string, 0, len(entries))
	for _, e := range entries {
		bullets = append(bullets, JournalBullet(e))
	}
	habits := SummarizeHabits(rows, now, opts.HabitRateDays, opts.CountUnlogged)
	block := RenderContext(bullets, habits, opts.HabitRateDays, opts.MaxRunes)

	span.SetAttributes(
		attribute.Int("journal.count", len(entries)),
		attribute.Int("habit.rows", len(rows)),
		attribute.Int("context.runes", utf8.RuneCountInString(block)),
	)

	if b.Cache != nil {
		b.Cache.Set(ctx, key, block, b.CacheTTL)
	}
	return block, nil
}

// Invalidate drops the cached block for userID so the next Build reflects
// fresh writes.
func (b *ContextBuilder) Invalidate(ctx context.Context, userID string) {
	if b == nil || b.Cache == nil {
		return
	}
	b.Cache.Delete(ctx, b.cacheKey(userID, b.now()))
	log.Debug().Str("user_id", userID).Msg("personal context invalidated")
}

func (b *ContextBuilder) now() time.Time {
	if b.Now != nil {
		return b.Now().UTC()
	}
	return time.Now().UTC()
}

// cacheKey includes the calendar day so windows roll over at midnight UTC.
func (b *ContextBuilder) cacheKey(userID string, now time.Time) string {
	return userID + ":" + now.Format(domain.DateLayout)
}

// JournalBullet renders one entry as "[YYYY-MM-DD] snippet". The snippet is
// trimmed, line breaks collapse to one space, and text longer than
// JournalSnippetRunes is cut and suffixed with "...".
func JournalBullet(e domain.JournalEntry) string {
	snippet := norm.NFC.String(strings.TrimSpace(e.Text))
	snippet = lineBreaksRE.ReplaceAllString(snippet, " ")
	if utf8.RuneCountInString(snippet) > JournalSnippetRunes {
		snippet = string([]rune(snippet)[:JournalSnippetRunes]) + ellipsis
	}
	return fmt.Sprintf("[%s] %s", e.CreatedAt.UTC().Format(domain.DateLayout), snippet)
}

// SummarizeHabits computes per-habit completion rates over the rateDays
// window ending at now. Rows are grouped by habit name; a nil Completed
// counts as not completed. Rows with a nil LogDate are treated as dated
// today when countUnlogged is set, and skipped otherwise.
//
// Output is "name: rate%" pairs sorted by name and joined with ", ", or
// NoHabitsYet when rows is empty, or NoRecentHabits when nothing falls in
// the window.
func SummarizeHabits(rows []domain.HabitLogRow, now time.Time, rateDays int, countUnlogged bool) string {
	if len(rows) == 0 {
		return NoHabitsYet
	}
	cutoff := now.UTC().AddDate(0, 0, -rateDays).Format(domain.DateLayout)

	type tally struct{ done, total int }
	groups := make(map[string]*tally)
	for _, r := range rows {
		if r.LogDate == nil {
			if !countUnlogged {
				continue
			}
		} else if *r.LogDate < cutoff {
			continue
		}
		g, ok := groups[r.HabitName]
		if !ok {
			g = &tally{}
			groups[r.HabitName] = g
		}
		g.total++
		if r.Completed != nil && *r.Completed {
			g.done++
		}
	}
	if len(groups) == 0 {
		return NoRecentHabits
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		g := groups[name]
		parts = append(parts, fmt.Sprintf("%s: %d%%", name, CompletionRate(g.done, g.total)))
	}
	return strings.Join(parts, ", ")
}

// CompletionRate returns round-half-up(100 * done / total); total <= 0 is 0.
func CompletionRate(done, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}

// RenderContext assembles the final block:
//
//	Recent Journals:
//	- [2024-01-02] ...
//
//	Habit Adherence (last 7 days): walk: 100%
//
// When maxRunes > 0 and the block is too long, the oldest bullets (the tail
// of the newest-first list) are dropped until it fits or one remains.
func RenderContext(bullets []string, habitSummary string, rateDays, maxRunes int) string {
	render := func(bs []string) string {
		journals := NoJournalEntries
		if len(bs) > 0 {
			journals = strings.Join(bs, "\n- ")
		}
		return fmt.Sprintf("Recent Journals:\n- %s\n\nHabit Adherence (last %d days): %s", journals, rateDays, habitSummary)
	}

	out := render(bullets)
	for maxRunes > 0 && len(bullets) > 1 && utf8.RuneCountInString(out) > maxRunes {
		bullets = bullets[:len(bullets)-1]
		out = render(bullets)
	}
	return out
}
