package llmservice

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"campus-assistant/internal/config"
	"campus-assistant/internal/helper"
)

type GeminiChat struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
}

func NewGeminiChat(ctx context.Context, llmConfig *config.LLMConfig, timeout time.Duration) (*GeminiChat, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(llmConfig.APIKey()))
	if err != nil {
		return nil, err
	}
	model := client.GenerativeModel(llmConfig.Model)
	model.SetTemperature(0)
	if llmConfig.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(llmConfig.MaxTokens))
	}
	return &GeminiChat{client: client, model: model, timeout: timeout}, nil
}

func (g *GeminiChat) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := helper.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("model returned no candidates")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func (g *GeminiChat) Close() error {
	return g.client.Close()
}
