package vectorstore

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/proto"

	"campus-assistant/internal/helper"
	"campus-assistant/internal/models"
)

const qdrantUpsertBatch = 256

// QdrantStore keeps chunks in a Qdrant collection reached through an alias.
// Each rebuild fills a new collection and repoints the alias in one call, so
// searches never see a half-built collection.
type QdrantStore struct {
	conn        *grpc.ClientConn
	points      qdrant.PointsClient
	collections qdrant.CollectionsClient
	alias       string
	timeout     time.Duration
	count       atomic.Int64
}

// NewQdrantStore dials addr lazily. Every RPC is bounded by timeout.
func NewQdrantStore(addr, alias string, timeout time.Duration) (*QdrantStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("could not connect to Qdrant: %w", err)
	}
	return &QdrantStore{
		conn:        conn,
		points:      qdrant.NewPointsClient(conn),
		collections: qdrant.NewCollectionsClient(conn),
		alias:       alias,
		timeout:     timeout,
	}, nil
}

func (s *QdrantStore) Open(ctx context.Context) error {
	target, err := s.aliasTarget(ctx)
	if err != nil {
		return err
	}
	if target == "" {
		s.count.Store(0)
		return nil
	}
	callCtx, cancel := helper.WithTimeout(ctx, s.timeout)
	defer cancel()
	resp, err := s.points.Count(callCtx, &qdrant.CountPoints{
		CollectionName: s.alias,
		Exact:          proto.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to count points: %w", err)
	}
	s.count.Store(int64(resp.GetResult().GetCount()))
	log.Debug().Str("alias", s.alias).Str("collection", target).Int64("count", s.count.Load()).Msg("Opened Qdrant collection")
	return nil
}

func (s *QdrantStore) Ready() bool { return s.Count() > 0 }

func (s *QdrantStore) Count() int { return int(s.count.Load()) }

func (s *QdrantStore) Replace(ctx context.Context, entries []models.Entry) error {
	if len(entries) == 0 {
		return fmt.Errorf("no entries to store")
	}
	name := s.alias + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	callCtx, cancel := helper.WithTimeout(ctx, s.timeout)
	_, err := s.collections.Create(callCtx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(len(entries[0].Embedding)),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	cancel()
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	if err := s.upsert(ctx, name, entries); err != nil {
		s.dropCollection(ctx, name)
		return err
	}

	previous, err := s.aliasTarget(ctx)
	if err != nil {
		s.dropCollection(ctx, name)
		return err
	}

	actions := []*qdrant.AliasOperations{}
	if previous != "" {
		actions = append(actions, &qdrant.AliasOperations{
			Action: &qdrant.AliasOperations_DeleteAlias{DeleteAlias: &qdrant.DeleteAlias{AliasName: s.alias}},
		})
	}
	actions = append(actions, &qdrant.AliasOperations{
		Action: &qdrant.AliasOperations_CreateAlias{CreateAlias: &qdrant.CreateAlias{CollectionName: name, AliasName: s.alias}},
	})
	callCtx, cancel = helper.WithTimeout(ctx, s.timeout)
	_, err = s.collections.UpdateAliases(callCtx, &qdrant.ChangeAliases{Actions: actions})
	cancel()
	if err != nil {
		s.dropCollection(ctx, name)
		return fmt.Errorf("failed to switch alias: %w", err)
	}

	s.count.Store(int64(len(entries)))
	if previous != "" {
		s.dropCollection(ctx, previous)
	}
	return nil
}

func (s *QdrantStore) upsert(ctx context.Context, collection string, entries []models.Entry) error {
	for start := 0; start < len(entries); start += qdrantUpsertBatch {
		end := min(start+qdrantUpsertBatch, len(entries))
		points := make([]*qdrant.PointStruct, 0, end-start)
		for _, e := range entries[start:end] {
			points = append(points, &qdrant.PointStruct{
				Id:      &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: e.ID}},
				Vectors: &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: e.Embedding}}},
				Payload: map[string]*qdrant.Value{
					"content":  {Kind: &qdrant.Value_StringValue{StringValue: e.Chunk.Content}},
					"source":   {Kind: &qdrant.Value_StringValue{StringValue: e.Chunk.Source}},
					"position": {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(e.Chunk.Position)}},
					"offset":   {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(e.Chunk.Offset)}},
					"seq":      {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(e.Seq)}},
				},
			})
		}
		callCtx, cancel := helper.WithTimeout(ctx, s.timeout)
		_, err := s.points.Upsert(callCtx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         points,
			Wait:           proto.Bool(true),
		})
		cancel()
		if err != nil {
			return fmt.Errorf("failed to upsert points to Qdrant: %w", err)
		}
	}
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, vec []float32, k int) ([]models.SearchResult, error) {
	if !s.Ready() {
		return nil, models.ErrStoreNotInitialized
	}
	ctx, cancel := helper.WithTimeout(ctx, s.timeout)
	defer cancel()
	resp, err := s.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: s.alias,
		Vector:         vec,
		Limit:          uint64(k),
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search points in Qdrant: %w", err)
	}

	results := make([]models.SearchResult, 0, len(resp.GetResult()))
	for _, hit := range resp.GetResult() {
		payload := hit.GetPayload()
		results = append(results, models.SearchResult{
			Chunk: models.Chunk{
				Content:  payload["content"].GetStringValue(),
				Source:   payload["source"].GetStringValue(),
				Position: int(payload["position"].GetIntegerValue()),
				Offset:   int(payload["offset"].GetIntegerValue()),
			},
			Seq:   int(payload["seq"].GetIntegerValue()),
			Score: float64(hit.GetScore()),
		})
	}
	return results, nil
}

func (s *QdrantStore) Close() error {
	return s.conn.Close()
}

// aliasTarget returns the collection the alias points at, or "".
func (s *QdrantStore) aliasTarget(ctx context.Context) (string, error) {
	ctx, cancel := helper.WithTimeout(ctx, s.timeout)
	defer cancel()
	resp, err := s.collections.ListAliases(ctx, &qdrant.ListAliasesRequest{})
	if err != nil {
		return "", fmt.Errorf("failed to list aliases: %w", err)
	}
	for _, a := range resp.GetAliases() {
		if a.GetAliasName() == s.alias {
			return a.GetCollectionName(), nil
		}
	}
	return "", nil
}

func (s *QdrantStore) dropCollection(ctx context.Context, name string) {
	ctx, cancel := helper.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.collections.Delete(ctx, &qdrant.DeleteCollection{CollectionName: name}); err != nil {
		log.Warn().Err(err).Str("collection", name).Msg("Failed to delete collection")
	}
}
