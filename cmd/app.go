package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"campus-assistant/internal/chunker"
	"campus-assistant/internal/config"
	"campus-assistant/internal/embedding"
	"campus-assistant/internal/fetcher"
	"campus-assistant/internal/llmservice"
	"campus-assistant/internal/models"
	"campus-assistant/internal/parser"
	"campus-assistant/internal/rag"
	"campus-assistant/internal/vectorstore"
)

func openIndex(ctx context.Context, cfg *config.Config) (*vectorstore.Index, error) {
	embedder, err := embedding.NewEmbedder(ctx, &cfg.EmbedLLM, cfg.Timeout())
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	ix, err := vectorstore.New(ctx, cfg, embedder)
	if err != nil {
		if closer, ok := embedder.(io.Closer); ok {
			closer.Close()
		}
		return nil, err
	}
	log.Debug().Str("type", cfg.VectorStore.Type).Int("count", ix.Count()).Msg("Opened vector store")
	return ix, nil
}

func newSyncer(cfg *config.Config, ix *vectorstore.Index) (*rag.Syncer, error) {
	c, err := chunker.New(cfg.RAG.ChunkSize, cfg.RAG.Overlap())
	if err != nil {
		return nil, err
	}
	return rag.NewSyncer(fetcher.New(cfg, nil), c, ix), nil
}

// newRAG wires the orchestrator. ix may be nil for strategies that do not
// retrieve from the vector store.
func newRAG(ctx context.Context, cfg *config.Config, ix *vectorstore.Index) (*rag.RAG, error) {
	opts, err := rag.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	var instruction *parser.Instruction
	if cfg.Prompt.InstructionFile != "" {
		instruction, err = parser.LoadInstruction(cfg.Prompt.InstructionFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load instruction file: %w", err)
		}
	}

	chat, err := llmservice.NewChat(ctx, &cfg.ChatLLM, cfg.Timeout())
	if err != nil {
		return nil, fmt.Errorf("failed to create chat client: %w", err)
	}

	var retriever rag.Retriever
	if ix != nil {
		retriever = ix
	}
	r, err := rag.NewRAG(opts, chat, retriever, fetcher.New(cfg, nil), instruction)
	if err != nil {
		if closer, ok := chat.(io.Closer); ok {
			closer.Close()
		}
		return nil, err
	}
	return r, nil
}

func usesIndex(cfg *config.Config) bool {
	return cfg.Strategy == string(models.StrategyVectorRetrieval)
}
