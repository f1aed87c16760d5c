// Package llmservice sends composed prompts to a chat model and classifies
// the failures that come back.
package llmservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"campus-assistant/internal/config"
)

// Chat generates one answer for a fully composed prompt.
type Chat interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// NewChat creates the chat client selected by llmConfig.Provider. Errors
// returned by Generate are classified with Classify.
func NewChat(ctx context.Context, llmConfig *config.LLMConfig, timeout time.Duration) (Chat, error) {
	log.Debug().
		Str("provider", llmConfig.Provider).
		Str("base_url", llmConfig.BaseURL).
		Str("model", llmConfig.Model).
		Msg("Creating chat client")

	var (
		c   Chat
		err error
	)
	switch llmConfig.Provider {
	case "openai":
		c, err = NewOpenAIChat(llmConfig, &http.Client{Timeout: timeout})
	case "gemini":
		c, err = NewGeminiChat(ctx, llmConfig, timeout)
	case "anthropic":
		c, err = NewAnthropicChat(llmConfig, timeout), nil
	default:
		return nil, fmt.Errorf("unknown chat provider: %q", llmConfig.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s chat client: %w", llmConfig.Provider, err)
	}
	return classified{next: c}, nil
}

// LangchainChat generates through any langchaingo model at temperature 0.
type LangchainChat struct {
	llm llms.Model
}

func NewLangchainChat(llm llms.Model) *LangchainChat {
	return &LangchainChat{llm: llm}
}

// NewOpenAIChat talks to an OpenAI-compatible chat endpoint such as OpenRouter.
func NewOpenAIChat(llmConfig *config.LLMConfig, httpClient *http.Client) (*LangchainChat, error) {
	opts := []openai.Option{
		openai.WithToken(llmConfig.APIKey()),
		openai.WithModel(llmConfig.Model),
		openai.WithHTTPClient(httpClient),
	}
	if llmConfig.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return NewLangchainChat(llm), nil
}

func (c *LangchainChat) Generate(ctx context.Context, prompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	res, err := c.llm.GenerateContent(ctx, messages, llms.WithTemperature(0))
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}
	return strings.TrimSpace(res.Choices[0].Content), nil
}

type classified struct {
	next Chat
}

func (c classified) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	out, err := c.next.Generate(ctx, prompt)
	if err != nil {
		err = Classify(err)
		log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("Model call failed")
		return "", err
	}
	log.Debug().Dur("elapsed", time.Since(start)).Int("answer_len", len(out)).Msg("Model call finished")
	return out, nil
}

// Close releases the underlying client when it holds one.
func (c classified) Close() error {
	if closer, ok := c.next.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
