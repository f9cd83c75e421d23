// Package app assembles the store, caches, language-model client and
// services from a config.Config. cmd/mindmate uses it for every subcommand.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/mindmate-backend/internal/auth"
	"github.com/tbourn/mindmate-backend/internal/cache"
	"github.com/tbourn/mindmate-backend/internal/config"
	"github.com/tbourn/mindmate-backend/internal/domain"
	"github.com/tbourn/mindmate-backend/internal/http/handlers"
	"github.com/tbourn/mindmate-backend/internal/http/middleware"
	"github.com/tbourn/mindmate-backend/internal/jsonstore"
	"github.com/tbourn/mindmate-backend/internal/llm"
	"github.com/tbourn/mindmate-backend/internal/repo"
	"github.com/tbourn/mindmate-backend/internal/services"
	"github.com/tbourn/mindmate-backend/internal/tips"
)

// Store backends.
const (
	BackendSQL  = "sql"
	BackendJSON = "json"
)

// App holds the wired services.
type App struct {
	Config  config.Config
	Store   services.Store
	Auth    *services.AuthService
	Context *services.ContextBuilder
	Chat    *services.ChatService
	Deps    handlers.Deps

	closers []io.Closer
}

// OpenStore opens the configured backend and brings its schema up to date.
func OpenStore(cfg config.StoreConfig) (services.Store, error) {
	switch cfg.Backend {
	case BackendJSON:
		return jsonstore.Open(cfg.JSONPath)
	case BackendSQL, "":
	default:
		return nil, fmt.Errorf("app: unknown store backend %q", cfg.Backend)
	}

	dsn := cfg.DSN
	if cfg.Driver == repo.DriverSQLite || cfg.Driver == "" {
		dsn = cfg.DBPath
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := repo.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("app: open %s: %w", cfg.Driver, err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("app: migrate: %w", err)
	}
	return repo.NewSQLStore(db), nil
}

// New builds the application. A Redis or tips failure is logged and the
// feature degrades (in-memory cache, no offline tips); store and provider
// errors are fatal.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	store, err := OpenStore(cfg.Store)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Store: store, closers: []io.Closer{store}}

	cb := services.NewContextBuilder(store)
	cb.CacheTTL = cfg.Cache.ContextTTL
	cb.Opts = ContextOptions(cfg.Personalization)
	cb.Cache = a.contextCache(ctx)
	a.Context = cb

	completer, err := llm.New(cfg.LLM, &http.Client{Timeout: cfg.LLM.Timeout})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if !cfg.LLM.Configured() {
		log.Warn().Str("provider", cfg.LLM.Provider).Msg("llm credentials missing; chat replies will apologize")
	}

	chat := services.NewChatService(store, cb, completer)
	chat.Params = llm.Params{Temperature: cfg.LLM.Temperature, MaxTokens: cfg.LLM.MaxTokens}
	chat.Timeout = cfg.LLM.Timeout
	chat.HistoryLimit = cfg.Personalization.HistoryLimit
	chat.IdempotencyTTL = cfg.IdempotencyTTL
	if lib := loadTips(cfg.TipsPath); lib != nil {
		chat.Tips = lib
	}
	a.Chat = chat

	a.Auth = services.NewAuthService(store,
		auth.NewHasher(cfg.Auth.BcryptCost),
		auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL))
	a.Auth.PasswordMinLen = cfg.Auth.PasswordMinLen

	a.Deps = handlers.Deps{
		Auth:     a.Auth,
		Journals: services.NewJournalService(store, cb),
		Habits:   services.NewHabitService(store, cb),
		Context:  cb,
		Chat:     chat,
		Health:   store,
	}
	return a, nil
}

// ContextOptions maps the personalization settings onto the builder.
func ContextOptions(p config.PersonalizationConfig) services.ContextOptions {
	return services.ContextOptions{
		JournalDays:    p.JournalDays,
		HabitQueryDays: p.HabitQueryDays,
		HabitRateDays:  p.HabitRateDays,
		CountUnlogged:  p.CountUnlogged,
		MaxRunes:       p.MaxRunes,
	}
}

func (a *App) contextCache(ctx context.Context) services.ContextCache {
	c := a.Config.Cache
	if c.RedisAddr == "" {
		return cache.NewMemory()
	}
	dctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	r, err := cache.Dial(dctx, c.RedisAddr, c.RedisPassword, c.RedisDB)
	if err != nil {
		log.Warn().Err(err).Str("addr", c.RedisAddr).Msg("redis unavailable; using in-process context cache")
		return cache.NewMemory()
	}
	a.closers = append(a.closers, r)
	log.Info().Str("addr", c.RedisAddr).Msg("context cache: redis")
	return r
}

func loadTips(path string) *tips.Library {
	if path == "" {
		return nil
	}
	lib, err := tips.Load(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("tips not loaded")
		return nil
	}
	log.Info().Int("tips", lib.Len()).Msg("offline tips loaded")
	return lib
}

// IdempotencyLookup reports whether key already answered a chat turn for
// userID.
func (a *App) IdempotencyLookup() middleware.IdempotencyLookup {
	return func(ctx context.Context, userID, key string, now time.Time) (bool, error) {
		_, err := a.Store.GetIdempotency(ctx, userID, services.IdempotencyScope, key, now)
		if err == nil {
			return true, nil
		}
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
}

type purger interface {
	PurgeExpiredIdempotency(ctx context.Context, now time.Time) (int64, error)
}

// RunJanitor deletes expired idempotency records every interval until ctx
// is done.
func (a *App) RunJanitor(ctx context.Context, every time.Duration) {
	p, ok := a.Store.(purger)
	if !ok || every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := p.PurgeExpiredIdempotency(ctx, now.UTC())
			if err != nil {
				log.Ctx(ctx).Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				log.Ctx(ctx).Debug().Int64("purged", n).Msg("idempotency purge")
			}
		}
	}
}

// Close releases the store and cache connections in reverse order.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
