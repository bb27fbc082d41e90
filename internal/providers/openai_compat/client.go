package openai_compat

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"pandachat/internal/providers"
)

type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// Client speaks the OpenAI-compatible chat completions API in streaming mode.
// DeepSeek, DashScope and the other compatible backends differ only in base
// URL and model id, so one client covers every supported provider kind.
type Client struct {
	api *openai.Client
}

func New(cfg Config) *Client {
	cc := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		cc.BaseURL = strings.TrimSuffix(base, "/")
	}
	if cfg.HTTPClient != nil {
		cc.HTTPClient = cfg.HTTPClient
	} else {
		cc.HTTPClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{api: openai.NewClientWithConfig(cc)}
}

var _ providers.Provider = (*Client)(nil)

func (c *Client) StreamChat(ctx context.Context, req providers.ChatRequest) (providers.Stream, error) {
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is empty")
	}
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat completion stream: %w", err)
	}
	return &chatStream{inner: stream}, nil
}

type chatStream struct {
	inner *openai.ChatCompletionStream
}

func (s *chatStream) Recv() (providers.Delta, error) {
	resp, err := s.inner.Recv()
	if err != nil {
		// io.EOF marks normal completion and passes through untouched.
		return providers.Delta{}, err
	}
	if len(resp.Choices) == 0 {
		return providers.Delta{}, nil
	}
	return providers.Delta{Content: resp.Choices[0].Delta.Content}, nil
}

func (s *chatStream) Close() error {
	return s.inner.Close()
}
