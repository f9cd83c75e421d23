// Package llm adapts chat-completion providers behind a single Completer
// interface. Adapters are stateless per call and safe for concurrent use.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tbourn/mindmate-backend/internal/config"
)

// Provider names accepted by New.
const (
	ProviderOpenAI  = "openai"
	ProviderHunyuan = "hunyuan"
)

var (
	// ErrNotConfigured is returned when the provider credentials are missing.
	ErrNotConfigured = errors.New("llm: provider not configured")

	// ErrEmptyReply is returned when the provider answered without content.
	ErrEmptyReply = errors.New("llm: empty reply")
)

// Message is one turn of the conversation sent to the model.
type Message struct {
	Role    string // "system", "user" or "assistant"
	Content string
}

// Params are the sampling settings for one completion.
type Params struct {
	Temperature float64
	MaxTokens   int
}

// Completer produces a single assistant reply for an ordered message list.
type Completer interface {
	Complete(ctx context.Context, msgs []Message, p Params) (string, error)
	Provider() string
}

// New builds the completer selected by cfg.Provider, wrapped with metrics.
// Missing credentials yield a completer that always fails with
// ErrNotConfigured, so the server still starts.
func New(cfg config.LLMConfig, hc *http.Client) (Completer, error) {
	var (
		c   Completer
		err error
	)
	switch {
	case !cfg.Configured():
		c = Unconfigured(cfg.Provider)
	case cfg.Provider == ProviderOpenAI:
		c, err = NewOpenAI(OpenAIOptions{
			APIKey:     cfg.OpenAIKey,
			Model:      cfg.OpenAIModel,
			BaseURL:    cfg.OpenAIBaseURL,
			HTTPClient: hc,
		})
	case cfg.Provider == ProviderHunyuan:
		c, err = NewHunyuan(HunyuanOptions{
			SecretID:  cfg.HunyuanSecretID,
			SecretKey: cfg.HunyuanSecretKey,
			Model:     cfg.HunyuanModel,
			Region:    cfg.HunyuanRegion,
			Endpoint:  cfg.HunyuanEndpoint,
			Timeout:   cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return Instrument(c), nil
}

type unconfigured struct{ provider string }

// Unconfigured returns a Completer that always fails with ErrNotConfigured.
func Unconfigured(provider string) Completer { return unconfigured{provider: provider} }

func (u unconfigured) Complete(context.Context, []Message, Params) (string, error) {
	return "", ErrNotConfigured
}

func (u unconfigured) Provider() string { return u.provider }
