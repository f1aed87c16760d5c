// Package db stores chunk embeddings in Postgres with the pgvector extension.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"campus-assistant/internal/models"
)

const insertBatchSize = 500

type ChunkRow struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`
	ID            string  `bun:"id,pk"`
	Seq           int     `bun:"seq,notnull"`
	Content       string  `bun:"content,notnull"`
	Source        string  `bun:"source,notnull"`
	Position      int     `bun:"chunk_position,notnull"`
	Offset        int     `bun:"chunk_offset,notnull"`
	Embedding     Vector  `bun:"embedding,notnull,type:vector"`
	Score         float64 `bun:"score,scanonly"`
}

// Store is a pgvector backed chunk store. Replace rebuilds the table inside
// one transaction so readers see either the old or the new content.
type Store struct {
	db    *bun.DB
	table string
	count atomic.Int64
}

// Connect opens a database handle with the named driver: pgdriver, pq or pgx.
func Connect(driver, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("database dsn is empty")
	}
	switch driver {
	case "pgdriver", "":
		return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn))), nil
	case "pq", "postgres":
		return sql.Open("postgres", dsn)
	case "pgx":
		return sql.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("unknown database driver: %q", driver)
	}
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func NewStore(db *bun.DB, table string) *Store {
	if table == "" {
		table = "chunks"
	}
	return &Store{db: db, table: table}
}

// Open makes sure the extension exists and counts the stored chunks.
func (s *Store) Open(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}

	var exists bool
	if err := s.db.NewRaw("SELECT to_regclass(?) IS NOT NULL", s.table).Scan(ctx, &exists); err != nil {
		return fmt.Errorf("failed to look up table %s: %w", s.table, err)
	}
	if !exists {
		s.count.Store(0)
		return nil
	}

	n, err := s.db.NewSelect().Model((*ChunkRow)(nil)).ModelTableExpr("? AS c", bun.Ident(s.table)).Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}
	s.count.Store(int64(n))
	log.Debug().Int("count", n).Str("table", s.table).Msg("Opened chunk table")
	return nil
}

func (s *Store) Ready() bool {
	return s.Count() > 0
}

func (s *Store) Count() int {
	return int(s.count.Load())
}

func (s *Store) Replace(ctx context.Context, entries []models.Entry) error {
	if len(entries) == 0 {
		return errors.New("no entries to store")
	}
	rows := make([]ChunkRow, len(entries))
	for i, e := range entries {
		rows[i] = ChunkRow{
			ID:        e.ID,
			Seq:       e.Seq,
			Content:   e.Chunk.Content,
			Source:    e.Chunk.Source,
			Position:  e.Chunk.Position,
			Offset:    e.Chunk.Offset,
			Embedding: Vector(e.Embedding),
		}
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDropTable().Model((*ChunkRow)(nil)).
			ModelTableExpr("?", bun.Ident(s.table)).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
		if _, err := tx.NewCreateTable().Model((*ChunkRow)(nil)).
			ModelTableExpr("?", bun.Ident(s.table)).Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
		for start := 0; start < len(rows); start += insertBatchSize {
			end := min(start+insertBatchSize, len(rows))
			batch := rows[start:end]
			if _, err := tx.NewInsert().Model(&batch).
				ModelTableExpr("?", bun.Ident(s.table)).Exec(ctx); err != nil {
				return fmt.Errorf("failed to insert chunks: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.count.Store(int64(len(rows)))
	return nil
}

// Search orders by cosine distance, then by insertion order.
func (s *Store) Search(ctx context.Context, vec []float32, k int) ([]models.SearchResult, error) {
	if !s.Ready() {
		return nil, models.ErrStoreNotInitialized
	}
	if k <= 0 {
		return nil, nil
	}

	var rows []ChunkRow
	err := s.db.NewSelect().
		Model(&rows).
		ModelTableExpr("? AS c", bun.Ident(s.table)).
		Column("id", "seq", "content", "source", "chunk_position", "chunk_offset").
		ColumnExpr("1 - (embedding <=> ?) AS score", Vector(vec)).
		OrderExpr("embedding <=> ?", Vector(vec)).
		Order("seq").
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	results := make([]models.SearchResult, len(rows))
	for i, r := range rows {
		results[i] = models.SearchResult{
			Chunk: models.Chunk{
				Content:  r.Content,
				Source:   r.Source,
				Position: r.Position,
				Offset:   r.Offset,
			},
			Seq:   r.Seq,
			Score: r.Score,
		}
	}
	return results, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
