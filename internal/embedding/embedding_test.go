package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"campus-assistant/internal/config"
	"campus-assistant/internal/llmservice"
	"campus-assistant/internal/models"
)

func newEmbeddingServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// Answer in reverse order to exercise index mapping.
		type item struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]item, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{Object: "embedding", Index: i, Embedding: []float32{float32(len(req.Input[i])), 1}})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": "test"})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIEmbedder(t *testing.T) {
	srv := newEmbeddingServer(t, http.StatusOK)
	e, err := NewEmbedder(context.Background(), &config.LLMConfig{
		Provider: "openai",
		BaseURL:  srv.URL + "/v1",
		Key:      "Bearer test",
		Model:    "text-embedding-3-small",
	}, 0)
	if err != nil {
		t.Fatalf("NewEmbedder failed: %v", err)
	}

	vectors, err := e.EmbedDocuments(context.Background(), []string{"a", "bbb"})
	if err != nil {
		t.Fatalf("EmbedDocuments failed: %v", err)
	}
	if len(vectors) != 2 || vectors[0][0] != 1 || vectors[1][0] != 3 {
		t.Errorf("vectors not in input order: %v", vectors)
	}

	q, err := e.EmbedQuery(context.Background(), "cc")
	if err != nil {
		t.Fatalf("EmbedQuery failed: %v", err)
	}
	if q[0] != 2 {
		t.Errorf("unexpected query vector: %v", q)
	}
}

func TestOpenAIEmbedderServiceError(t *testing.T) {
	srv := newEmbeddingServer(t, http.StatusTooManyRequests)
	e, err := NewEmbedder(context.Background(), &config.LLMConfig{
		Provider: "openai",
		BaseURL:  srv.URL + "/v1",
		Model:    "text-embedding-3-small",
	}, 0)
	if err != nil {
		t.Fatalf("NewEmbedder failed: %v", err)
	}

	_, err = e.EmbedDocuments(context.Background(), []string{"a"})
	if !errors.Is(err, models.ErrEmbeddingService) {
		t.Fatalf("expected ErrEmbeddingService, got %v", err)
	}
	if !llmservice.IsQuotaError(err) {
		t.Errorf("429 should still read as a quota error, got %v", err)
	}
}

type shortEmbedder struct{}

func (shortEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	return [][]float32{{1}}, nil
}

func (shortEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, nil
}

func TestCheckedRejectsShortResponses(t *testing.T) {
	e := Checked(shortEmbedder{})

	if _, err := e.EmbedDocuments(context.Background(), []string{"a", "b"}); !errors.Is(err, models.ErrEmbeddingService) {
		t.Errorf("expected ErrEmbeddingService for missing vectors, got %v", err)
	}
	if _, err := e.EmbedQuery(context.Background(), "a"); !errors.Is(err, models.ErrEmbeddingService) {
		t.Errorf("expected ErrEmbeddingService for empty vector, got %v", err)
	}
	if Checked(e) != e {
		t.Error("Checked should not wrap twice")
	}
}

type exhaustedEmbedder struct {
	closed bool
}

func (e *exhaustedEmbedder) EmbedDocuments(context.Context, []string) ([][]float32, error) {
	return nil, status.Error(codes.ResourceExhausted, "Too many requests, try again later")
}

func (e *exhaustedEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, status.Error(codes.ResourceExhausted, "Too many requests, try again later")
}

func (e *exhaustedEmbedder) Close() error {
	e.closed = true
	return nil
}

func TestCheckedKeepsProviderError(t *testing.T) {
	e := Checked(&exhaustedEmbedder{})

	_, err := e.EmbedQuery(context.Background(), "tuition")
	if !errors.Is(err, models.ErrEmbeddingService) {
		t.Fatalf("expected ErrEmbeddingService, got %v", err)
	}
	if status.Code(err) != codes.ResourceExhausted || !llmservice.IsQuotaError(err) {
		t.Errorf("provider status lost: %v", err)
	}
	if _, err := e.EmbedDocuments(context.Background(), []string{"a"}); !llmservice.IsQuotaError(err) {
		t.Errorf("provider status lost: %v", err)
	}
}

func TestCheckedClose(t *testing.T) {
	inner := &exhaustedEmbedder{}
	closer, ok := Checked(inner).(io.Closer)
	if !ok {
		t.Fatal("checked embedder should be closable")
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !inner.closed {
		t.Error("inner embedder was not closed")
	}
	if err := Checked(shortEmbedder{}).(io.Closer).Close(); err != nil {
		t.Errorf("closing a client-less embedder: %v", err)
	}
}

func TestUnknownProvider(t *testing.T) {
	if _, err := NewEmbedder(context.Background(), &config.LLMConfig{Provider: "nope"}, 0); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
