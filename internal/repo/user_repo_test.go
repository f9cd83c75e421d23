package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/mindmate-backend/internal/domain"
)

func TestCreateUser_AssignsIDAndRejectsDuplicates(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()

	u := &domain.User{Email: "a@x.io", Username: "alice", PasswordHash: "h"}
	if err := CreateUser(ctx, db, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" || u.CreatedAt.IsZero() {
		t.Fatalf("expected id and created_at to be set: %+v", u)
	}

	err := CreateUser(ctx, db, &domain.User{Email: "a@x.io", Username: "other", PasswordHash: "h"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate email: want ErrDuplicate, got %v", err)
	}
	err = CreateUser(ctx, db, &domain.User{Email: "b@x.io", Username: "alice", PasswordHash: "h"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate username: want ErrDuplicate, got %v", err)
	}
}

func TestGetUser_ByEmailAndID(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()

	u := &domain.User{Email: "a@x.io", Username: "alice", PasswordHash: "h"}
	if err := CreateUser(ctx, db, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := GetUserByEmail(ctx, db, "a@x.io")
	if err != nil || got.ID != u.ID {
		t.Fatalf("GetUserByEmail: got=%+v err=%v", got, err)
	}
	got, err = GetUser(ctx, db, u.ID)
	if err != nil || got.Email != "a@x.io" {
		t.Fatalf("GetUser: got=%+v err=%v", got, err)
	}

	if _, err := GetUserByEmail(ctx, db, "missing@x.io"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing email: want ErrNotFound, got %v", err)
	}
	if _, err := GetUser(ctx, db, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing id: want ErrNotFound, got %v", err)
	}
}

func TestCreateUser_Error_NoTable(t *testing.T) {
	db := newTestDB(t, false)
	err := CreateUser(context.Background(), db, &domain.User{Email: "a@x.io", Username: "a"})
	if err == nil || errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected a plain DB error, got %v", err)
	}
}
