package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/tbourn/mindmate-backend/internal/auth"
	"github.com/tbourn/mindmate-backend/internal/http/middleware"
	"github.com/tbourn/mindmate-backend/internal/llm"
	"github.com/tbourn/mindmate-backend/internal/repo"
	"github.com/tbourn/mindmate-backend/internal/services"
)

// scriptedLLM answers every call with reply or err.
type scriptedLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (s *scriptedLLM) Complete(context.Context, []llm.Message, llm.Params) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.reply, s.err
}

func (s *scriptedLLM) Provider() string { return llm.ProviderOpenAI }

// countingChat counts turns that reach ChatService.Send.
type countingChat struct {
	*services.ChatService
	mu    sync.Mutex
	sends int
}

func (c *countingChat) Send(ctx context.Context, userID, text, idemKey string) (*services.Reply, error) {
	c.mu.Lock()
	c.sends++
	c.mu.Unlock()
	return c.ChatService.Send(ctx, userID, text, idemKey)
}

type testEnv struct {
	r     *gin.Engine
	store *repo.SQLStore
	llm   *scriptedLLM
	chat  *countingChat
}

// newEnv wires real services over a temporary SQLite file. Protected routes
// sit behind middleware.Auth exactly as in production.
func newEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "h.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := repo.NewSQLStore(db)
	t.Cleanup(func() { _ = store.Close() })

	authSvc := services.NewAuthService(store, auth.NewHasher(bcrypt.MinCost), auth.NewTokens("0123456789abcdef-test", time.Hour))
	cb := services.NewContextBuilder(store)
	fake := &scriptedLLM{reply: "Breathe in for four counts."}
	chat := &countingChat{ChatService: services.NewChatService(store, cb, fake)}

	h := New(Deps{
		Auth:     authSvc,
		Journals: services.NewJournalService(store, cb),
		Habits:   services.NewHabitService(store, cb),
		Context:  cb,
		Chat:     chat,
		Health:   store,
	})

	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/health", h.Health)
	r.POST("/auth/signup", h.Signup)
	r.POST("/auth/login", h.Login)

	p := r.Group("")
	p.Use(middleware.Auth(authSvc))
	p.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, func(ctx context.Context, uid, key string, now time.Time) (bool, error) {
		_, err := store.GetIdempotency(ctx, uid, services.IdempotencyScope, key, now)
		return err == nil, nil
	}))
	p.GET("/auth/me", h.Me)
	p.POST("/journals", h.CreateJournal)
	p.GET("/journals", h.ListJournals)
	p.POST("/habits", h.CreateHabit)
	p.GET("/habits", h.ListHabits)
	p.PUT("/habits/:id/logs", h.LogHabit)
	p.GET("/habits/progress", h.HabitProgress)
	p.GET("/context", h.GetContext)
	p.POST("/chat/messages", h.SendMessage)
	p.GET("/chat/messages", h.ListMessages)
	p.GET("/chat/messages/:id", h.GetMessage)

	return &testEnv{r: r, store: store, llm: fake, chat: chat}
}

type call struct {
	method, path, token string
	body                any
	header              map[string]string
}

func (e *testEnv) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		if s, ok := c.body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(c.body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

// login signs up name and returns a bearer token.
func (e *testEnv) login(t *testing.T, name string) string {
	t.Helper()
	email := name + "@example.com"
	if w := e.do(t, call{method: http.MethodPost, path: "/auth/signup", body: SignupRequest{Email: email, Username: name, Password: "secret1"}}); w.Code != http.StatusCreated {
		t.Fatalf("signup %s: %d %s", name, w.Code, w.Body.String())
	}
	w := e.do(t, call{method: http.MethodPost, path: "/auth/login", body: LoginRequest{Email: email, Password: "secret1"}})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", name, w.Code, w.Body.String())
	}
	var resp LoginResponse
	decode(t, w, &resp)
	return resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	decode(t, w, &e)
	return e
}

func ginCtx(ifNoneMatch string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if ifNoneMatch != "" {
		c.Request.Header.Set("If-None-Match", ifNoneMatch)
	}
	return c, w
}
