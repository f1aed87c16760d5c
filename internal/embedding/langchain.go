package embedding

import (
	"net/http"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"campus-assistant/internal/config"
)

// NewLangchainEmbedder embeds through langchaingo's OpenAI client.
func NewLangchainEmbedder(llmConfig *config.LLMConfig, httpClient *http.Client) (*embeddings.EmbedderImpl, error) {
	opts := []openai.Option{
		openai.WithToken(llmConfig.APIKey()),
		openai.WithEmbeddingModel(llmConfig.Model),
		openai.WithHTTPClient(httpClient),
	}
	if llmConfig.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm, embeddings.WithBatchSize(batchSize(llmConfig)))
}

// NewOllamaEmbedder embeds with a local Ollama server.
func NewOllamaEmbedder(llmConfig *config.LLMConfig, httpClient *http.Client) (*embeddings.EmbedderImpl, error) {
	opts := []ollama.Option{
		ollama.WithModel(llmConfig.Model),
		ollama.WithHTTPClient(httpClient),
	}
	if llmConfig.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(llmConfig.BaseURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm, embeddings.WithBatchSize(batchSize(llmConfig)))
}

func batchSize(llmConfig *config.LLMConfig) int {
	if llmConfig.BatchSize > 0 {
		return llmConfig.BatchSize
	}
	return 100
}
