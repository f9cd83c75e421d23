package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tbourn/mindmate-backend/internal/config"
	"github.com/tbourn/mindmate-backend/internal/domain"
	"github.com/tbourn/mindmate-backend/internal/services"
)

func testConfig(t *testing.T, backend string) config.Config {
	t.Helper()
	dir := t.TempDir()
	tipsPath := filepath.Join(dir, "tips.md")
	if err := os.WriteFile(tipsPath, []byte("## Sleep\n- Keep a steady bedtime.\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STORE_BACKEND", backend)
	t.Setenv("DB_PATH", filepath.Join(dir, "db", "mindmate.db"))
	t.Setenv("JSON_STORE_PATH", filepath.Join(dir, "mindmate.json"))
	t.Setenv("JWT_SECRET", "app-test-secret-0123456789")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("TIPS_PATH", tipsPath)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("REDIS_ADDR", "")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func TestNew_WiresBothBackends(t *testing.T) {
	for _, backend := range []string{BackendSQL, BackendJSON} {
		t.Run(backend, func(t *testing.T) {
			a, err := New(context.Background(), testConfig(t, backend))
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer a.Close()

			if a.Deps.Auth == nil || a.Deps.Journals == nil || a.Deps.Habits == nil || a.Deps.Context == nil || a.Deps.Chat == nil || a.Deps.Health == nil {
				t.Fatalf("deps not wired: %+v", a.Deps)
			}
			if a.Chat.Tips == nil {
				t.Fatalf("tips should be loaded")
			}
			if err := a.Store.Ping(context.Background()); err != nil {
				t.Fatalf("ping: %v", err)
			}

			ctx := context.Background()
			u, err := a.Auth.Signup(ctx, "wire@example.com", "wire", "secret12")
			if err != nil {
				t.Fatalf("signup: %v", err)
			}
			// Unconfigured provider: the turn apologizes with a tip and stores nothing.
			r, err := a.Chat.Send(ctx, u.ID, "I can't sleep", "k1")
			if err != nil || r.Persisted {
				t.Fatalf("send: %+v %v", r, err)
			}
			hit, err := a.IdempotencyLookup()(ctx, u.ID, "k1", time.Now().UTC())
			if err != nil || hit {
				t.Fatalf("unpersisted turn must not claim the key: %v %v", hit, err)
			}
		})
	}
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	if _, err := OpenStore(config.StoreConfig{Backend: "csv"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestIdempotencyLookupAndJanitor(t *testing.T) {
	a, err := New(context.Background(), testConfig(t, BackendJSON))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()
	ctx := context.Background()

	u, _ := a.Auth.Signup(ctx, "j@example.com", "j", "secret12")
	claim := &domain.IdempotencyClaim{Scope: services.IdempotencyScope, Key: "turn", Status: 201, TTL: 20 * time.Millisecond}
	if _, err := a.Store.AppendExchange(ctx, u.ID, "q", "r", claim); err != nil {
		t.Fatal(err)
	}
	lookup := a.IdempotencyLookup()
	if hit, err := lookup(ctx, u.ID, "turn", time.Now().UTC()); err != nil || !hit {
		t.Fatalf("live key: %v %v", hit, err)
	}
	if hit, _ := lookup(ctx, "someone-else", "turn", time.Now().UTC()); hit {
		t.Fatalf("lookup must be scoped per user")
	}

	jctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		a.RunJanitor(jctx, 10*time.Millisecond)
		close(done)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for {
		_, err := a.Store.GetIdempotency(ctx, u.ID, services.IdempotencyScope, "turn", time.Time{})
		if err != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("janitor never purged the expired key")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done
}
