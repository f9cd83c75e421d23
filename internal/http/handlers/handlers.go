package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/mindmate-backend/internal/domain"
	"github.com/tbourn/mindmate-backend/internal/http/middleware"
	"github.com/tbourn/mindmate-backend/internal/services"
)

// AuthService is the account surface used by the auth handlers.
type AuthService interface {
	Signup(ctx context.Context, email, username, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*services.Session, error)
	Me(ctx context.Context, userID string) (*domain.User, error)
}

// JournalService is the journal surface used by the journal handlers.
type JournalService interface {
	Add(ctx context.Context, userID, text string) (*domain.JournalEntry, error)
	List(ctx context.Context, userID string, days int) ([]domain.JournalEntry, error)
	Stats(ctx context.Context, userID string, days int) (int64, *time.Time, error)
}

// HabitService is the habit surface used by the habit handlers.
type HabitService interface {
	Create(ctx context.Context, userID, name string) (*domain.Habit, error)
	List(ctx context.Context, userID string) ([]domain.Habit, error)
	Toggle(ctx context.Context, userID, habitID, date string, completed bool) (*domain.HabitLog, error)
	Progress(ctx context.Context, userID string, days int) ([]domain.HabitLogRow, error)
}

// ContextService renders the personalization block.
type ContextService interface {
	Build(ctx context.Context, userID string) (string, error)
}

// ChatService runs chat turns and reads the chat log.
type ChatService interface {
	Send(ctx context.Context, userID, text, idemKey string) (*services.Reply, error)
	Replay(ctx context.Context, userID, idemKey string) (*services.Reply, error)
	History(ctx context.Context, userID string, limit int) ([]domain.ChatMessage, error)
	Get(ctx context.Context, userID string, id uint64) (*domain.ChatMessage, error)
}

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps lists the services behind the HTTP API. Every field is required
// except Health.
type Deps struct {
	Auth     AuthService
	Journals JournalService
	Habits   HabitService
	Context  ContextService
	Chat     ChatService
	Health   Pinger
}

// Handlers groups all endpoints of the API.
type Handlers struct {
	auth       AuthService
	journals   JournalService
	habits     HabitService
	contextSvc ContextService
	chat       ChatService
	health     Pinger
}

// New constructs Handlers bound to d.
func New(d Deps) *Handlers {
	return &Handlers{
		auth:       d.Auth,
		journals:   d.Journals,
		habits:     d.Habits,
		contextSvc: d.Context,
		chat:       d.Chat,
		health:     d.Health,
	}
}

// currentUser returns the authenticated user id or writes 401. Routes behind
// middleware.Auth always have one.
func currentUser(c *gin.Context) (string, bool) {
	uid, ok := middleware.UserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
	}
	return uid, ok
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// Health godoc
// @ID          health
// @Summary     Liveness and storage check
// @Tags        System
// @Produce     json
// @Success     200  {object}  handlers.HealthResponse
// @Failure     503  {object}  handlers.ErrorResponse  "Storage unavailable"
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.health.Ping(ctx); err != nil {
			_ = c.Error(err)
			fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "storage unavailable")
			return
		}
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
