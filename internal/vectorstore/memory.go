package vectorstore

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"campus-assistant/internal/models"
)

// MemoryStore is a brute-force cosine similarity store that lives only as
// long as the process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []models.Entry
	norms   []float64
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Open(context.Context) error { return nil }

func (s *MemoryStore) Ready() bool { return s.Count() > 0 }

func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) Replace(_ context.Context, entries []models.Entry) error {
	if len(entries) == 0 {
		return errors.New("no entries to store")
	}
	dim := len(entries[0].Embedding)
	norms := make([]float64, len(entries))
	for i, e := range entries {
		if len(e.Embedding) != dim {
			return errors.New("vector dimension mismatch")
		}
		norms[i] = norm(e.Embedding)
	}
	copied := append([]models.Entry(nil), entries...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = copied
	s.norms = norms
	return nil
}

func (s *MemoryStore) Search(_ context.Context, vec []float32, k int) ([]models.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return nil, models.ErrStoreNotInitialized
	}

	qn := norm(vec)
	results := make([]models.SearchResult, len(s.entries))
	for i, e := range s.entries {
		score := 0.0
		if qn > 0 && s.norms[i] > 0 {
			score = dot(e.Embedding, vec) / (qn * s.norms[i])
		}
		results[i] = models.SearchResult{Chunk: e.Chunk, Seq: e.Seq, Score: score}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Seq < results[j].Seq
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func (s *MemoryStore) Close() error { return nil }

func dot(a, b []float32) float64 {
	n := min(len(a), len(b))
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
