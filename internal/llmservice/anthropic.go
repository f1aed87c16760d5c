package llmservice

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"campus-assistant/internal/config"
)

const defaultAnthropicMaxTokens = 1024

type AnthropicChat struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

func NewAnthropicChat(llmConfig *config.LLMConfig, timeout time.Duration) *AnthropicChat {
	opts := []option.RequestOption{
		option.WithAPIKey(llmConfig.APIKey()),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(0),
	}
	if llmConfig.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(llmConfig.BaseURL))
	}

	maxTokens := int64(defaultAnthropicMaxTokens)
	if llmConfig.MaxTokens > 0 {
		maxTokens = int64(llmConfig.MaxTokens)
	}
	return &AnthropicChat{
		client:    anthropic.NewClient(opts...),
		model:     anthropic.Model(llmConfig.Model),
		maxTokens: maxTokens,
	}
}

func (a *AnthropicChat) Generate(ctx context.Context, prompt string) (string, error) {
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, content := range message.Content {
		if content.Type == "text" {
			b.WriteString(content.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("model returned no text content")
	}
	return strings.TrimSpace(b.String()), nil
}
