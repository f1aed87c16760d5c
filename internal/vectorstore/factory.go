package vectorstore

import (
	"context"
	"fmt"

	"campus-assistant/internal/chromemdb"
	"campus-assistant/internal/config"
	"campus-assistant/internal/db"
	"campus-assistant/internal/embedding"
	"campus-assistant/internal/storage"
)

// New builds the backend named by cfg.VectorStore.Type, wraps it in an Index
// and opens it.
func New(ctx context.Context, cfg *config.Config, embedder embedding.Embedder) (*Index, error) {
	backend, err := newBackend(ctx, cfg, embedder)
	if err != nil {
		return nil, err
	}
	ix := NewIndex(embedder, backend, cfg.EmbedLLM.BatchSize)
	if err := ix.Open(ctx); err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.VectorStore.Type, err)
	}
	return ix, nil
}

func newBackend(ctx context.Context, cfg *config.Config, embedder embedding.Embedder) (Backend, error) {
	switch cfg.VectorStore.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "chromem":
		snapshots, err := storage.NewStorage(ctx, cfg.Snapshot)
		if err != nil {
			return nil, err
		}
		return chromemdb.NewVectorDBManager(chromemdb.Options{
			PersistDir:    cfg.RAG.PersistDir,
			Collection:    cfg.RAG.Collection,
			InMemory:      cfg.RAG.InMemory,
			Compress:      cfg.RAG.Compress,
			EncryptionKey: cfg.RAG.EncryptionKey,
			SnapshotKey:   cfg.Snapshot.Key,
			Storage:       snapshots,
		}, embedder.EmbedQuery), nil
	case "postgres":
		sqldb, err := db.Connect(cfg.Database.Driver, cfg.DatabaseDSN())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return db.NewStore(db.NewDB(sqldb, cfg.Database.Debug), cfg.Database.Table), nil
	case "qdrant":
		return NewQdrantStore(cfg.Qdrant.Addr, cfg.Qdrant.Collection, cfg.Timeout())
	default:
		return nil, fmt.Errorf("unknown vector store type: %q", cfg.VectorStore.Type)
	}
}
