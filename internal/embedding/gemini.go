package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"campus-assistant/internal/config"
	"campus-assistant/internal/helper"
)

// GeminiEmbedder embeds with the Gemini embedding models.
type GeminiEmbedder struct {
	client  *genai.Client
	model   *genai.EmbeddingModel
	timeout time.Duration
}

func NewGeminiEmbedder(ctx context.Context, llmConfig *config.LLMConfig, timeout time.Duration) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(llmConfig.APIKey()))
	if err != nil {
		return nil, err
	}
	return &GeminiEmbedder{
		client:  client,
		model:   client.EmbeddingModel(llmConfig.Model),
		timeout: timeout,
	}, nil
}

func (e *GeminiEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := helper.WithTimeout(ctx, e.timeout)
	defer cancel()

	batch := e.model.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}
	resp, err := e.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("missing embedding in batch response")
		}
		vectors = append(vectors, emb.Values)
	}
	return vectors, nil
}

func (e *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := helper.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("missing embedding in response")
	}
	return resp.Embedding.Values, nil
}

func (e *GeminiEmbedder) Close() error {
	return e.client.Close()
}
