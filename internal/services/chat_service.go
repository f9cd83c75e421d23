// Package services – ChatService
//
// ChatService runs one conversational turn: it assembles the persona, the
// user's personalization block, recent history and the new message, asks
// the completion provider for a reply and appends the exchange to the chat
// log. Provider failures never surface as errors; the caller gets an
// apology (plus an offline tip when available) and nothing is persisted.
//
// A client-supplied idempotency key makes retries safe: a key that already
// produced a stored reply returns that reply without calling the provider.
package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/mindmate-backend/internal/domain"
	"github.com/tbourn/mindmate-backend/internal/llm"
	"github.com/tbourn/mindmate-backend/internal/tips"
)

// Persona is the fixed system preamble of every conversation.
const Persona = "You are MindMate, a friendly and empathetic wellness companion. " +
	"Be supportive, non-judgmental, and concrete. " +
	"Prefer short, practical suggestions (1–3 items). " +
	"If user seems distressed, suggest a simple grounding exercise. " +
	"Avoid medical diagnoses."

// ContextPrefix introduces the personalization block.
const ContextPrefix = "User personal context:\n"

// Chat defaults.
const (
	DefaultHistoryLimit = 10
	DefaultHistoryView  = 8
	MaxHistoryView      = 100
	MaxPromptRunes      = 2000
	DefaultLLMTimeout   = 30 * time.Second

	// IdempotencyScope namespaces chat idempotency keys.
	IdempotencyScope = "chat"
)

// User-visible replies for provider failures.
const (
	ApologyNotConfigured = "OpenAI API key not set. Please configure your .env."
	ApologyTimeout       = "Sorry, I took too long to answer. Please try again in a moment."
	ApologyGeneric       = "Sorry, I couldn't reach my thinking engine right now. Please try again in a moment."
	tipLead              = "\n\nIn the meantime, here is something you can try: "
)

// ContextProvider renders the personalization block for a user.
type ContextProvider interface {
	Build(ctx context.Context, userID string) (string, error)
}

// TipSource suggests an offline tip for a message.
type TipSource interface {
	Suggest(query string) (tips.Tip, bool)
}

// Reply is the outcome of Send.
type Reply struct {
	Message *domain.ChatMessage
	// Persisted is false when the reply is an apology that was not stored.
	Persisted bool
	// Replayed is true when the reply came from a previous request with the
	// same idempotency key.
	Replayed bool
}

// ChatService orchestrates chat turns.
type ChatService struct {
	Store   ChatStore
	Context ContextProvider
	LLM     llm.Completer
	Tips    TipSource // optional

	Params         llm.Params
	Timeout        time.Duration
	HistoryLimit   int
	MaxPromptRunes int
	IdempotencyTTL time.Duration
	Now            func() time.Time
}

// NewChatService returns a ChatService with the standard sampling settings
// (temperature 0.8, 350 max tokens) and a 10-message history.
func NewChatService(store ChatStore, cp ContextProvider, c llm.Completer) *ChatService {
	return &ChatService{
		Store:          store,
		Context:        cp,
		LLM:            c,
		Params:         llm.Params{Temperature: 0.8, MaxTokens: 350},
		Timeout:        DefaultLLMTimeout,
		HistoryLimit:   DefaultHistoryLimit,
		MaxPromptRunes: MaxPromptRunes,
		IdempotencyTTL: 24 * time.Hour,
		Now:            func() time.Time { return time.Now().UTC() },
	}
}

// Send runs one chat turn for userID. idemKey may be empty.
//
// Errors are returned only for invalid input and store failures.
func (s *ChatService) Send(ctx context.Context, userID, text, idemKey string) (*Reply, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Send", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.Bool("idempotency.key", idemKey != ""),
	))
	defer span.End()

	prompt := strings.TrimSpace(text)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	if utf8.RuneCountInString(prompt) > s.maxPrompt() {
		return nil, ErrTooLong
	}

	if idemKey != "" {
		if r, err := s.Replay(ctx, userID, idemKey); err != nil || r != nil {
			if r != nil {
				span.SetAttributes(attribute.Bool("replayed", true))
			}
			return r, err
		}
	}

	block, err := s.Context.Build(ctx, userID)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("context build failed; context unavailable")
		block = RenderContext([]string{ContextUnavailable}, ContextUnavailable, DefaultContextOptions().HabitRateDays, 0)
	}

	limit := s.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	history, err := s.Store.ListRecentChatMessages(ctx, userID, limit)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	msgs := BuildMessages(block, history, prompt)
	span.SetAttributes(attribute.Int("llm.messages", len(msgs)))

	cctx, cancel := context.WithTimeout(ctx, s.timeout())
	answer, err := s.LLM.Complete(cctx, msgs, s.Params)
	timedOut := errors.Is(cctx.Err(), context.DeadlineExceeded)
	cancel()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		log.Ctx(ctx).Warn().Err(err).Str("provider", s.LLM.Provider()).Msg("completion failed")
		return &Reply{Message: &domain.ChatMessage{
			UserID:    userID,
			Role:      domain.RoleAssistant,
			Content:   s.apology(err, timedOut, prompt),
			CreatedAt: s.now(),
		}}, nil
	}

	var claim *domain.IdempotencyClaim
	if idemKey != "" {
		claim = &domain.IdempotencyClaim{
			Scope:  IdempotencyScope,
			Key:    idemKey,
			Status: http.StatusCreated,
			TTL:    s.IdempotencyTTL,
		}
	}
	stored, err := s.Store.AppendExchange(ctx, userID, prompt, answer, claim)
	if err != nil {
		// A concurrent request with the same key won the race.
		if claim != nil && errors.Is(err, domain.ErrDuplicate) {
			if r, rerr := s.Replay(ctx, userID, idemKey); rerr == nil && r != nil {
				return r, nil
			}
		}
		span.RecordError(err)
		return nil, err
	}
	return &Reply{Message: stored, Persisted: true}, nil
}

// History returns the user's last limit messages in chronological order.
func (s *ChatService) History(ctx context.Context, userID string, limit int) ([]domain.ChatMessage, error) {
	limit = ClampWindow(limit, DefaultHistoryView, MaxHistoryView)
	ctx, span := otel.Tracer("services/ChatService").Start(ctx, "History", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.Int("limit", limit),
	))
	defer span.End()
	return s.Store.ListRecentChatMessages(ctx, userID, limit)
}

// Get returns one message owned by userID.
func (s *ChatService) Get(ctx context.Context, userID string, id uint64) (*domain.ChatMessage, error) {
	m, err := s.Store.GetChatMessage(ctx, userID, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrMessageNotFound
	}
	return m, err
}

// BuildMessages assembles the provider input: persona, personalization
// block, prior messages with their original roles, then the new prompt.
func BuildMessages(block string, history []domain.ChatMessage, prompt string) []llm.Message {
	out := make([]llm.Message, 0, len(history)+3)
	out = append(out,
		llm.Message{Role: domain.RoleSystem, Content: Persona},
		llm.Message{Role: domain.RoleSystem, Content: ContextPrefix + block},
	)
	for _, m := range history {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return append(out, llm.Message{Role: domain.RoleUser, Content: prompt})
}

// Replay returns the stored reply for an unexpired key, or nil when none.
func (s *ChatService) Replay(ctx context.Context, userID, key string) (*Reply, error) {
	rec, err := s.Store.GetIdempotency(ctx, userID, IdempotencyScope, key, s.now())
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m, err := s.Store.GetChatMessage(ctx, userID, rec.MessageID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Reply{Message: m, Persisted: true, Replayed: true}, nil
}

// apology picks the user-facing text for a failed completion. timedOut
// reports whether the completion deadline fired, which catches providers
// that do not wrap context errors.
func (s *ChatService) apology(err error, timedOut bool, prompt string) string {
	var msg string
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		msg = ApologyNotConfigured
		if s.LLM.Provider() == llm.ProviderHunyuan {
			msg = "Hunyuan credentials not set. Please configure your .env."
		}
	case timedOut, errors.Is(err, context.DeadlineExceeded):
		msg = ApologyTimeout
	default:
		msg = ApologyGeneric
	}
	if s.Tips != nil {
		if tip, ok := s.Tips.Suggest(prompt); ok {
			msg += tipLead + tip.Text
		}
	}
	return msg
}

func (s *ChatService) maxPrompt() int {
	if s.MaxPromptRunes > 0 {
		return s.MaxPromptRunes
	}
	return MaxPromptRunes
}

func (s *ChatService) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return DefaultLLMTimeout
}

func (s *ChatService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
