package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/mindmate-backend/internal/app"
	"github.com/tbourn/mindmate-backend/internal/config"
	httpapi "github.com/tbourn/mindmate-backend/internal/http"
	"github.com/tbourn/mindmate-backend/internal/logging"
	"github.com/tbourn/mindmate-backend/internal/observability"
	"github.com/tbourn/mindmate-backend/internal/services"
)

// Globals is passed to every command's Run.
type Globals struct {
	Config config.Config
}

const (
	shutdownGrace  = 15 * time.Second
	janitorEvery   = 10 * time.Minute
	contextTimeout = 10 * time.Second
)

// ServeCmd starts the HTTP server and blocks until SIGINT/SIGTERM.
type ServeCmd struct {
	Port string `help:"Override PORT." short:"p"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg := g.Config
	if c.Port != "" {
		cfg.Port = c.Port
	}

	closer, err := logging.Setup(logging.FromConfig(&cfg))
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	go a.RunJanitor(ctx, janitorEvery)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, a.Deps, a.Auth, a.IdempotencyLookup(), cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return log.Logger.WithContext(context.Background()) },
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("store", cfg.Store.Backend).
			Str("llm", cfg.LLM.Provider).
			Str("version", version).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errc
}

// MigrateCmd applies the schema for the configured store.
type MigrateCmd struct{}

func (c *MigrateCmd) Run(g *Globals) error {
	s, err := app.OpenStore(g.Config.Store)
	if err != nil {
		return err
	}
	defer s.Close()
	fmt.Printf("schema up to date (%s)\n", describeStore(g.Config.Store))
	return nil
}

// ContextCmd prints the block the assistant would receive for a user.
type ContextCmd struct {
	Email string `help:"Account email." required:""`
}

func (c *ContextCmd) Run(g *Globals) error {
	ctx, cancel := context.WithTimeout(context.Background(), contextTimeout)
	defer cancel()

	s, err := app.OpenStore(g.Config.Store)
	if err != nil {
		return err
	}
	defer s.Close()

	block, err := personalContext(ctx, s, g.Config.Personalization, c.Email)
	if err != nil {
		return err
	}
	fmt.Println(block)
	return nil
}

func personalContext(ctx context.Context, s services.Store, p config.PersonalizationConfig, email string) (string, error) {
	u, err := s.GetUserByEmail(ctx, services.NormalizeEmail(email))
	if err != nil {
		return "", fmt.Errorf("user %q: %w", email, err)
	}
	cb := services.NewContextBuilder(s)
	cb.Opts = app.ContextOptions(p)
	return cb.Build(ctx, u.ID)
}

// VersionCmd prints build information.
type VersionCmd struct{}

func (c *VersionCmd) Run(*Globals) error {
	fmt.Printf("mindmate %s (%s, %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return nil
}

func describeStore(s config.StoreConfig) string {
	if s.Backend == app.BackendJSON {
		return "json " + s.JSONPath
	}
	if s.Driver == "" || s.Driver == "sqlite" {
		return "sqlite " + s.DBPath
	}
	return s.Driver
}
