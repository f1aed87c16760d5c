// Package vectorstore embeds chunks into a similarity index and answers
// top-k queries against it. Backends own persistence; Index owns embedding,
// batching and result ordering.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"campus-assistant/internal/embedding"
	"campus-assistant/internal/helper"
	"campus-assistant/internal/models"
)

// Backend persists entries and runs nearest-neighbour search.
type Backend interface {
	// Open loads whatever a previous run left behind. It never builds.
	Open(ctx context.Context) error
	Ready() bool
	// Replace swaps the whole content for entries. A failed Replace leaves
	// the previous content queryable.
	Replace(ctx context.Context, entries []models.Entry) error
	Search(ctx context.Context, vec []float32, k int) ([]models.SearchResult, error)
	Count() int
	Close() error
}

const (
	defaultBatchSize = 100
	// reopenInterval spaces the reloads of an empty backend, which may have
	// been filled by a sync running in another process.
	reopenInterval = 30 * time.Second
)

type Index struct {
	embedder  embedding.Embedder
	backend   Backend
	batchSize int

	mu          sync.Mutex
	opened      time.Time
	reopenEvery time.Duration
}

func NewIndex(embedder embedding.Embedder, backend Backend, batchSize int) *Index {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Index{embedder: embedder, backend: backend, batchSize: batchSize, reopenEvery: reopenInterval}
}

func (ix *Index) Open(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.opened = time.Now()
	return ix.backend.Open(ctx)
}

func (ix *Index) Ready() bool {
	return ix.backend.Ready()
}

func (ix *Index) Count() int {
	return ix.backend.Count()
}

func (ix *Index) Backend() Backend {
	return ix.backend
}

// Build embeds every chunk and replaces the stored content. Embedding runs
// before the backend is touched, so an embedding failure keeps the previous
// content.
func (ix *Index) Build(ctx context.Context, chunks []models.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: no chunks to index", models.ErrIngestionEmpty)
	}

	entries := make([]models.Entry, 0, len(chunks))
	for start := 0; start < len(chunks); start += ix.batchSize {
		end := min(start+ix.batchSize, len(chunks))
		texts := make([]string, end-start)
		for i, c := range chunks[start:end] {
			texts[i] = c.Content
		}

		vectors, err := ix.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return 0, embeddingError(err)
		}
		if len(vectors) != len(texts) {
			return 0, fmt.Errorf("%w: got %d vectors for %d texts", models.ErrEmbeddingService, len(vectors), len(texts))
		}

		for i, vec := range vectors {
			id, err := helper.GenerateUUID()
			if err != nil {
				return 0, err
			}
			entries = append(entries, models.Entry{
				ID:        id,
				Seq:       start + i,
				Chunk:     chunks[start+i],
				Embedding: vec,
			})
		}
		log.Debug().Int("embedded", end).Int("total", len(chunks)).Msg("Embedded batch")
	}

	if err := ix.backend.Replace(ctx, entries); err != nil {
		return 0, fmt.Errorf("failed to store entries: %w", err)
	}
	log.Info().Int("entries", len(entries)).Msg("Vector store rebuilt")
	return len(entries), nil
}

// Query returns at most k chunks ordered by descending score, ties broken by
// insertion order.
func (ix *Index) Query(ctx context.Context, text string, k int) ([]models.SearchResult, error) {
	if !ix.refresh(ctx) {
		return nil, models.ErrStoreNotInitialized
	}
	if k <= 0 {
		return []models.SearchResult{}, nil
	}

	vec, err := ix.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, embeddingError(err)
	}
	results, err := ix.backend.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Seq < results[j].Seq
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// refresh reports whether the backend holds content, reopening an empty
// backend at most once per reopenEvery.
func (ix *Index) refresh(ctx context.Context) bool {
	if ix.backend.Ready() {
		return true
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.backend.Ready() || time.Since(ix.opened) < ix.reopenEvery {
		return ix.backend.Ready()
	}
	ix.opened = time.Now()
	if err := ix.backend.Open(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to reopen vector store")
		return false
	}
	if ix.backend.Ready() {
		log.Info().Int("count", ix.backend.Count()).Msg("Vector store filled by another process")
	}
	return ix.backend.Ready()
}

// Close closes the backend and the embedder, if it holds a client.
func (ix *Index) Close() error {
	err := ix.backend.Close()
	if closer, ok := ix.embedder.(io.Closer); ok {
		err = errors.Join(err, closer.Close())
	}
	return err
}

func embeddingError(err error) error {
	if errors.Is(err, models.ErrEmbeddingService) {
		return err
	}
	return fmt.Errorf("%w: %w", models.ErrEmbeddingService, err)
}
