package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestHabitService_CreateNormalizes(t *testing.T) {
	store := newTestStore(t)
	u := mustUser(t, store, "h")
	inv := &countingInvalidator{}
	s := NewHabitService(store, inv)
	ctx := context.Background()

	if _, err := s.Create(ctx, u.ID, " \t "); !errors.Is(err, ErrEmptyHabitName) {
		t.Fatalf("blank: %v", err)
	}
	if _, err := s.Create(ctx, u.ID, strings.Repeat("n", MaxHabitNameRunes+1)); !errors.Is(err, ErrHabitNameTooLong) {
		t.Fatalf("too long: %v", err)
	}
	h, err := s.Create(ctx, u.ID, "  drink   more\twater ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if h.Name != "drink more water" {
		t.Fatalf("name=%q", h.Name)
	}
	if _, err := s.Create(ctx, u.ID, "drink more water"); err != nil {
		t.Fatalf("duplicate names are allowed: %v", err)
	}
	if hs, _ := s.List(ctx, u.ID); len(hs) != 2 {
		t.Fatalf("List len=%d", len(hs))
	}
	if len(inv.users) != 2 {
		t.Fatalf("invalidations=%d", len(inv.users))
	}
}

func TestHabitService_ToggleOwnershipDateAndUpsert(t *testing.T) {
	store := newTestStore(t)
	owner := mustUser(t, store, "owner")
	other := mustUser(t, store, "other")
	s := NewHabitService(store, nil)
	s.Now = fixedNow(time.Date(2024, 1, 8, 23, 30, 0, 0, time.UTC))
	ctx := context.Background()

	h, _ := s.Create(ctx, owner.ID, "walk")

	if _, err := s.Toggle(ctx, other.ID, h.ID, "", true); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("foreign habit: %v", err)
	}
	if _, err := s.Toggle(ctx, owner.ID, "missing", "", true); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("missing habit: %v", err)
	}
	for _, bad := range []string{"2024-1-8", "08/01/2024", "2024-02-30"} {
		if _, err := s.Toggle(ctx, owner.ID, h.ID, bad, true); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("date %q: %v", bad, err)
		}
	}

	l, err := s.Toggle(ctx, owner.ID, h.ID, "", true)
	if err != nil || l.LogDate != "2024-01-08" || !l.Completed {
		t.Fatalf("toggle today: %+v %v", l, err)
	}
	if _, err := s.Toggle(ctx, owner.ID, h.ID, "2024-01-08", false); err != nil {
		t.Fatal(err)
	}

	rows, err := s.Progress(ctx, owner.ID, 0)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if len(rows) != 1 || rows[0].Completed == nil || *rows[0].Completed {
		t.Fatalf("upsert should leave one row with the last value: %+v", rows)
	}
}

func TestHabitService_ConcurrentTogglesLeaveOneRow(t *testing.T) {
	store := newTestStore(t)
	u := mustUser(t, store, "c")
	s := NewHabitService(store, nil)
	ctx := context.Background()
	h, _ := s.Create(ctx, u.ID, "stretch")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(done bool) {
			defer wg.Done()
			if _, err := s.Toggle(ctx, u.ID, h.ID, "2024-05-01", done); err != nil {
				t.Errorf("Toggle: %v", err)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	rows, err := store.ListHabitLogs(ctx, u.ID, "2024-05-01")
	if err != nil || len(rows) != 1 {
		t.Fatalf("rows=%+v err=%v", rows, err)
	}
}

func TestParseLogDate(t *testing.T) {
	now := time.Date(2024, 6, 1, 1, 0, 0, 0, time.FixedZone("X", 3*3600))
	if got, _ := ParseLogDate("  ", now); got != "2024-05-31" {
		t.Fatalf("empty should be today in UTC, got %q", got)
	}
	if got, err := ParseLogDate(" 2024-02-29 ", now); err != nil || got != "2024-02-29" {
		t.Fatalf("leap day: %q %v", got, err)
	}
}
