package llm

import (
	"context"
	"strings"
	"time"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	hunyuan "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/hunyuan/v20230901"
)

// HunyuanOptions configures the Tencent Hunyuan adapter.
type HunyuanOptions struct {
	SecretID  string
	SecretKey string
	Model     string
	Region    string
	Endpoint  string
	Timeout   time.Duration
}

// Hunyuan calls Tencent Cloud's Hunyuan ChatCompletions API (non-streaming).
type Hunyuan struct {
	client *hunyuan.Client
	model  string
}

// NewHunyuan builds the adapter. Missing credentials return ErrNotConfigured.
func NewHunyuan(o HunyuanOptions) (*Hunyuan, error) {
	if o.SecretID == "" || o.SecretKey == "" {
		return nil, ErrNotConfigured
	}
	cred := common.NewCredential(o.SecretID, o.SecretKey)
	cpf := profile.NewClientProfile()
	if o.Endpoint != "" {
		cpf.HttpProfile.Endpoint = o.Endpoint
	}
	if o.Timeout > 0 {
		cpf.HttpProfile.ReqTimeout = int(o.Timeout.Seconds())
	}
	client, err := hunyuan.NewClient(cred, o.Region, cpf)
	if err != nil {
		return nil, err
	}
	return &Hunyuan{client: client, model: o.Model}, nil
}

// Provider implements Completer.
func (h *Hunyuan) Provider() string { return ProviderHunyuan }

// Complete implements Completer. MaxTokens is not supported by this API and
// is ignored.
func (h *Hunyuan) Complete(ctx context.Context, msgs []Message, p Params) (string, error) {
	req := hunyuan.NewChatCompletionsRequest()
	req.Model = common.StringPtr(h.model)
	req.Stream = common.BoolPtr(false)
	req.Temperature = common.Float64Ptr(p.Temperature)
	req.Messages = hunyuanMessages(msgs)

	resp, err := h.client.ChatCompletionsWithContext(ctx, req)
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Response == nil || len(resp.Response.Choices) == 0 {
		return "", ErrEmptyReply
	}
	c := resp.Response.Choices[0]
	if c.Message == nil || c.Message.Content == nil || strings.TrimSpace(*c.Message.Content) == "" {
		return "", ErrEmptyReply
	}
	return strings.TrimSpace(*c.Message.Content), nil
}

// hunyuanMessages converts msgs, folding all leading system messages into
// one; the API accepts a single system message in first position.
func hunyuanMessages(msgs []Message) []*hunyuan.Message {
	out := make([]*hunyuan.Message, 0, len(msgs))
	var system []string
	i := 0
	for ; i < len(msgs) && msgs[i].Role == "system"; i++ {
		system = append(system, msgs[i].Content)
	}
	if len(system) > 0 {
		out = append(out, &hunyuan.Message{
			Role:    common.StringPtr("system"),
			Content: common.StringPtr(strings.Join(system, "\n\n")),
		})
	}
	for _, m := range msgs[i:] {
		out = append(out, &hunyuan.Message{
			Role:    common.StringPtr(m.Role),
			Content: common.StringPtr(m.Content),
		})
	}
	return out
}
