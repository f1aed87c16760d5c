package chromemdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"campus-assistant/internal/models"
	"campus-assistant/internal/storage"
)

// Options configures where the chromem collection lives.
type Options struct {
	PersistDir    string
	Collection    string
	InMemory      bool
	Compress      bool
	EncryptionKey string
	// SnapshotKey names the exported snapshot in Storage.
	SnapshotKey string
	Storage     storage.Storage
}

// VectorDBManager encapsulates the chromem-go database operations.
// A rebuild never mutates the live collection: a fresh database is built
// aside and swapped in once complete.
type VectorDBManager struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	opts       Options
	embed      chromem.EmbeddingFunc
}

// NewVectorDBManager creates a manager. embed is only used by chromem when a
// document or query arrives without an embedding.
func NewVectorDBManager(opts Options, embed chromem.EmbeddingFunc) *VectorDBManager {
	return &VectorDBManager{opts: opts, embed: embed}
}

// Open loads an existing collection, from disk or from the snapshot in
// storage when running in memory. A missing collection is not an error.
func (m *VectorDBManager) Open(ctx context.Context) error {
	if m.opts.InMemory {
		if m.opts.Storage == nil {
			return nil
		}
		if err := m.Import(ctx); err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				log.Info().Str("key", m.opts.SnapshotKey).Msg("No snapshot found, store starts empty")
				return nil
			}
			return err
		}
		return nil
	}

	if _, err := os.Stat(m.opts.PersistDir); errors.Is(err, os.ErrNotExist) {
		log.Info().Str("path", m.opts.PersistDir).Msg("No persisted database found, store starts empty")
		return nil
	}
	db, err := chromem.NewPersistentDB(m.opts.PersistDir, m.opts.Compress)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	m.swap(db, db.GetCollection(m.opts.Collection, m.embed))
	log.Debug().Int("count", m.Count()).Str("collection", m.opts.Collection).Msg("Opened collection")
	return nil
}

func (m *VectorDBManager) Ready() bool {
	return m.Count() > 0
}

func (m *VectorDBManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.collection == nil {
		return 0
	}
	return m.collection.Count()
}

// Replace builds a new collection from entries and swaps it in. On failure
// the live collection is left untouched.
func (m *VectorDBManager) Replace(ctx context.Context, entries []models.Entry) error {
	if len(entries) == 0 {
		return errors.New("no entries to store")
	}
	docs := toDocuments(entries)

	if m.opts.InMemory {
		db := chromem.NewDB()
		col, err := m.fill(ctx, db, docs)
		if err != nil {
			return err
		}
		if m.opts.Storage != nil {
			if err := m.export(ctx, db); err != nil {
				return err
			}
		}
		m.swap(db, col)
		return nil
	}
	return m.replacePersistent(ctx, docs)
}

func (m *VectorDBManager) replacePersistent(ctx context.Context, docs []chromem.Document) error {
	building := m.opts.PersistDir + ".building"
	old := m.opts.PersistDir + ".old"
	if err := os.RemoveAll(building); err != nil {
		return fmt.Errorf("failed to clear build directory: %v", err)
	}

	db, err := chromem.NewPersistentDB(building, m.opts.Compress)
	if err != nil {
		return fmt.Errorf("failed to create database: %v", err)
	}
	if _, err := m.fill(ctx, db, docs); err != nil {
		os.RemoveAll(building)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.RemoveAll(old); err != nil {
		return fmt.Errorf("failed to clear old directory: %v", err)
	}
	hadPrevious := false
	if _, err := os.Stat(m.opts.PersistDir); err == nil {
		if err := os.Rename(m.opts.PersistDir, old); err != nil {
			return fmt.Errorf("failed to move previous database: %v", err)
		}
		hadPrevious = true
	}
	if err := os.Rename(building, m.opts.PersistDir); err != nil {
		if hadPrevious {
			os.Rename(old, m.opts.PersistDir)
		}
		return fmt.Errorf("failed to move new database into place: %v", err)
	}

	live, err := chromem.NewPersistentDB(m.opts.PersistDir, m.opts.Compress)
	if err != nil {
		return fmt.Errorf("failed to reopen database: %v", err)
	}
	m.db = live
	m.collection = live.GetCollection(m.opts.Collection, m.embed)
	os.RemoveAll(old)
	return nil
}

func (m *VectorDBManager) fill(ctx context.Context, db *chromem.DB, docs []chromem.Document) (*chromem.Collection, error) {
	col, err := db.CreateCollection(m.opts.Collection, nil, m.embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %v", err)
	}
	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("failed to add documents: %v", err)
	}
	return col, nil
}

func (m *VectorDBManager) swap(db *chromem.DB, col *chromem.Collection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.db = db
	m.collection = col
}

// Search returns up to k nearest chunks by cosine similarity.
func (m *VectorDBManager) Search(ctx context.Context, vec []float32, k int) ([]models.SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.collection == nil || m.collection.Count() == 0 {
		return nil, models.ErrStoreNotInitialized
	}
	if k > m.collection.Count() {
		k = m.collection.Count()
	}
	if k <= 0 {
		return nil, nil
	}

	res, err := m.collection.QueryEmbedding(ctx, vec, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	results := make([]models.SearchResult, 0, len(res))
	for _, r := range res {
		results = append(results, models.SearchResult{
			Chunk: models.Chunk{
				Content:  r.Content,
				Source:   r.Metadata["source"],
				Position: atoi(r.Metadata["position"]),
				Offset:   atoi(r.Metadata["offset"]),
			},
			Seq:   atoi(r.Metadata["seq"]),
			Score: float64(r.Similarity),
		})
	}
	return results, nil
}

// Export uploads a snapshot of the live collection to storage.
func (m *VectorDBManager) Export(ctx context.Context) error {
	if m.opts.Storage == nil {
		return errors.New("no snapshot storage configured")
	}
	m.mu.RLock()
	db := m.db
	m.mu.RUnlock()
	if db == nil || m.Count() == 0 {
		return models.ErrStoreNotInitialized
	}
	return m.export(ctx, db)
}

func (m *VectorDBManager) export(ctx context.Context, db *chromem.DB) error {
	var buf bytes.Buffer
	if err := db.ExportToWriter(&buf, m.opts.Compress, m.opts.EncryptionKey, m.opts.Collection); err != nil {
		return fmt.Errorf("failed to export database: %v", err)
	}
	if err := m.opts.Storage.Upload(ctx, m.opts.SnapshotKey, &buf); err != nil {
		return fmt.Errorf("failed to upload snapshot: %w", err)
	}
	log.Info().Str("key", m.opts.SnapshotKey).Msg("Exported snapshot")
	return nil
}

// Import replaces the live collection with the snapshot held in storage.
func (m *VectorDBManager) Import(ctx context.Context) error {
	if m.opts.Storage == nil {
		return errors.New("no snapshot storage configured")
	}
	rc, err := m.opts.Storage.Download(ctx, m.opts.SnapshotKey)
	if err != nil {
		return err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %v", err)
	}

	db := chromem.NewDB()
	if err := db.ImportFromReader(bytes.NewReader(data), m.opts.EncryptionKey, m.opts.Collection); err != nil {
		return fmt.Errorf("failed to import database: %v", err)
	}
	col := db.GetCollection(m.opts.Collection, m.embed)
	if col == nil {
		return fmt.Errorf("snapshot has no collection %q", m.opts.Collection)
	}
	m.swap(db, col)
	log.Info().Str("key", m.opts.SnapshotKey).Int("count", col.Count()).Msg("Imported snapshot")
	return nil
}

func (m *VectorDBManager) Close() error {
	return nil
}

func toDocuments(entries []models.Entry) []chromem.Document {
	docs := make([]chromem.Document, len(entries))
	for i, e := range entries {
		docs[i] = chromem.Document{
			ID:      e.ID,
			Content: e.Chunk.Content,
			Metadata: map[string]string{
				"source":   e.Chunk.Source,
				"position": strconv.Itoa(e.Chunk.Position),
				"offset":   strconv.Itoa(e.Chunk.Offset),
				"seq":      strconv.Itoa(e.Seq),
			},
			Embedding: e.Embedding,
		}
	}
	return docs
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
