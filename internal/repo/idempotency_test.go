package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/mindmate-backend/internal/domain"
)

func TestGetIdempotency_EmptyKey_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, true)
	rec, err := GetIdempotency(context.Background(), db, "u1", "chat", "   ", time.Now().UTC())
	if rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for empty key, got (%v, %v)", rec, err)
	}
}

func TestGetIdempotency_ExpiredOrMissing_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, true)
	now := time.Now().UTC()

	exp := &domain.Idempotency{
		ID:        "expired",
		UserID:    "u1",
		Scope:     "chat",
		Key:       "k1",
		Status:    200,
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}
	if err := db.Create(exp).Error; err != nil {
		t.Fatalf("seed expired: %v", err)
	}

	rec, err := GetIdempotency(context.Background(), db, "u1", "chat", "k1", now)
	if rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for expired, got (%v, %v)", rec, err)
	}
	rec2, err2 := GetIdempotency(context.Background(), db, "u1", "chat", "missing", now)
	if rec2 != nil || err2 != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for missing, got (%v, %v)", rec2, err2)
	}
}

func TestCreateIdempotency_SuccessAndDuplicate(t *testing.T) {
	db := newTestDB(t, true)
	ttl := 90 * time.Minute
	start := time.Now().UTC()

	rec, err := CreateIdempotency(context.Background(), db, "u9", "chat", "k9", 9, 201, ttl)
	if err != nil {
		t.Fatalf("CreateIdempotency error: %v", err)
	}
	if rec == nil || rec.ID == "" || rec.UserID != "u9" || rec.Scope != "chat" || rec.Key != "k9" || rec.MessageID != 9 || rec.Status != 201 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !(rec.ExpiresAt.After(start) && rec.ExpiresAt.Before(start.Add(2*time.Hour))) {
		t.Fatalf("unexpected ExpiresAt: %v", rec.ExpiresAt)
	}

	got, err := GetIdempotency(context.Background(), db, "u9", "chat", "k9", time.Now().UTC())
	if err != nil || got.MessageID != 9 {
		t.Fatalf("GetIdempotency: %+v %v", got, err)
	}

	_, err2 := CreateIdempotency(context.Background(), db, "u9", "chat", "k9", 10, 201, ttl)
	if err2 != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err2)
	}
}

func TestCreateIdempotency_Error_NoTable(t *testing.T) {
	db := newTestDB(t, false)
	_, err := CreateIdempotency(context.Background(), db, "uX", "chat", "kX", 1, 200, time.Minute)
	if err == nil || err == ErrDuplicate {
		t.Fatalf("expected non-duplicate error, got %v", err)
	}
}

func TestPurgeExpiredIdempotency(t *testing.T) {
	db := newTestDB(t, true)
	now := time.Now().UTC()
	for i, exp := range []time.Time{now.Add(-time.Minute), now.Add(time.Hour)} {
		rec := &domain.Idempotency{
			ID: string(rune('a' + i)), UserID: "u1", Scope: "chat", Key: string(rune('a' + i)),
			Status: 201, CreatedAt: now, ExpiresAt: exp,
		}
		if err := db.Create(rec).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	n, err := PurgeExpiredIdempotency(context.Background(), db, now)
	if err != nil || n != 1 {
		t.Fatalf("want 1 purged, got %d err=%v", n, err)
	}
}
