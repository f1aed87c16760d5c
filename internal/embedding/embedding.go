// Package embedding turns text into vectors through a remote embedding
// service. Every provider satisfies Embedder; NewEmbedder picks one from
// configuration.
package embedding

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"campus-assistant/internal/config"
	"campus-assistant/internal/models"
)

// Embedder maps texts to fixed-dimension vectors.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// NewEmbedder creates the embedder selected by llmConfig.Provider. Errors
// from the returned embedder wrap models.ErrEmbeddingService.
func NewEmbedder(ctx context.Context, llmConfig *config.LLMConfig, timeout time.Duration) (Embedder, error) {
	log.Debug().
		Str("provider", llmConfig.Provider).
		Str("base_url", llmConfig.BaseURL).
		Str("model", llmConfig.Model).
		Msg("Creating embedder")

	httpClient := &http.Client{Timeout: timeout}

	var (
		e   Embedder
		err error
	)
	switch llmConfig.Provider {
	case "openai":
		e = NewOpenAIEmbedder(llmConfig, httpClient)
	case "langchain-openai":
		e, err = NewLangchainEmbedder(llmConfig, httpClient)
	case "ollama":
		e, err = NewOllamaEmbedder(llmConfig, httpClient)
	case "gemini":
		e, err = NewGeminiEmbedder(ctx, llmConfig, timeout)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", llmConfig.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s embedder: %w", llmConfig.Provider, err)
	}
	return Checked(e), nil
}

// Checked wraps e so that failures and short responses surface as
// models.ErrEmbeddingService.
func Checked(e Embedder) Embedder {
	if c, ok := e.(*checked); ok {
		return c
	}
	return &checked{next: e}
}

type checked struct {
	next Embedder
}

func (c *checked) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := c.next.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrEmbeddingService, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", models.ErrEmbeddingService, len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty vector at index %d", models.ErrEmbeddingService, i)
		}
	}
	return vectors, nil
}

func (c *checked) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := c.next.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrEmbeddingService, err)
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", models.ErrEmbeddingService)
	}
	return v, nil
}

// Close releases the underlying client when it holds one.
func (c *checked) Close() error {
	if closer, ok := c.next.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
