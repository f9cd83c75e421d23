package llm

import (
	"context"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIOptions configures the OpenAI-compatible adapter.
type OpenAIOptions struct {
	APIKey     string
	Model      string
	BaseURL    string // optional, for proxies and compatible gateways
	HTTPClient *http.Client
}

// OpenAI talks to an OpenAI-compatible chat-completions endpoint through
// langchaingo.
type OpenAI struct {
	model *openai.LLM
}

// NewOpenAI builds the adapter. An empty APIKey returns ErrNotConfigured.
func NewOpenAI(o OpenAIOptions) (*OpenAI, error) {
	if strings.TrimSpace(o.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	opts := []openai.Option{
		openai.WithToken(o.APIKey),
		openai.WithModel(o.Model),
	}
	if o.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(o.BaseURL))
	}
	if o.HTTPClient != nil {
		opts = append(opts, openai.WithHTTPClient(o.HTTPClient))
	}
	m, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return &OpenAI{model: m}, nil
}

// Provider implements Completer.
func (o *OpenAI) Provider() string { return ProviderOpenAI }

// Complete implements Completer.
func (o *OpenAI) Complete(ctx context.Context, msgs []Message, p Params) (string, error) {
	content := make([]llms.MessageContent, 0, len(msgs))
	for _, m := range msgs {
		content = append(content, llms.TextParts(chatRole(m.Role), m.Content))
	}

	callOpts := []llms.CallOption{llms.WithTemperature(p.Temperature)}
	if p.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(p.MaxTokens))
	}
	resp, err := o.model.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	out := strings.TrimSpace(resp.Choices[0].Content)
	if out == "" {
		return "", ErrEmptyReply
	}
	return out, nil
}

func chatRole(role string) llms.ChatMessageType {
	switch role {
	case "system":
		return llms.ChatMessageTypeSystem
	case "assistant":
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
