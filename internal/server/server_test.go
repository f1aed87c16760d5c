package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"campus-assistant/internal/models"
	"campus-assistant/internal/questionlog"
	"campus-assistant/internal/rag"
)

type fakeAsker struct {
	resp *models.PromptResponse
	err  error
	got  string
}

func (f *fakeAsker) Query(_ context.Context, q string) (*models.PromptResponse, error) {
	f.got = q
	return f.resp, f.err
}

type fakeSyncer struct {
	dryRun bool
	err    error
}

func (f *fakeSyncer) Sync(_ context.Context, dryRun bool) (*rag.SyncReport, error) {
	f.dryRun = dryRun
	return &rag.SyncReport{Chunks: 3, Stored: 3, DryRun: dryRun}, f.err
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func init() {
	gin.SetMode(gin.TestMode)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return w, env
}

func answered(content string) *models.PromptResponse {
	return &models.PromptResponse{
		Content:  content,
		State:    models.StateAnswered,
		Strategy: models.StrategyVectorRetrieval,
		Sources:  []string{"Fees"},
		Duration: 1500 * time.Millisecond,
	}
}

func TestHealth(t *testing.T) {
	s := New(&fakeAsker{}, nil, nil, "@gmail.com")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != `{"status":"ok"}` {
		t.Errorf("got %d %s", w.Code, w.Body.String())
	}
}

func TestAskAnswered(t *testing.T) {
	logged := make(chan questionlog.Record, 1)
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rec questionlog.Record
		_ = json.NewDecoder(r.Body).Decode(&rec)
		logged <- rec
	}))
	defer collector.Close()

	asker := &fakeAsker{resp: answered("**Fee:** 2,000,000 IDR")}
	s := New(asker, nil, questionlog.New(collector.URL, time.Second), "@gmail.com")

	w, env := doJSON(t, s.Handler(), http.MethodPost, "/api/ask",
		AskRequest{Email: "student@gmail.com", Question: "What is the tuition fee?"})
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
	var data AskResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Answer != "**Fee:** 2,000,000 IDR" || data.AnswerHTML != "<p><strong>Fee:</strong> 2,000,000 IDR</p>" {
		t.Errorf("got answer %q / %q", data.Answer, data.AnswerHTML)
	}
	if data.DurationMS != 1500 || data.State != models.StateAnswered {
		t.Errorf("unexpected data %+v", data)
	}
	if asker.got != "What is the tuition fee?" {
		t.Errorf("asker got %q", asker.got)
	}

	select {
	case rec := <-logged:
		if rec.Email != "student@gmail.com" || rec.Duration != 1.5 {
			t.Errorf("logged %+v", rec)
		}
	default:
		t.Error("question was not logged")
	}
}

func TestAskRejectsEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		code  string
	}{
		{"malformed", "not-an-email", "INVALID_REQUEST"},
		{"wrong domain", "student@yahoo.com", "INVALID_EMAIL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asker := &fakeAsker{resp: answered("unused")}
			s := New(asker, nil, nil, "@gmail.com")
			w, env := doJSON(t, s.Handler(), http.MethodPost, "/api/ask", AskRequest{Email: tt.email, Question: "fee?"})
			if w.Code != http.StatusBadRequest || env.Error.Code != tt.code {
				t.Errorf("got %d %s", w.Code, w.Body.String())
			}
			if asker.got != "" {
				t.Error("asker should not be called")
			}
		})
	}
}

func TestAskEmptyQuestion(t *testing.T) {
	asker := &fakeAsker{
		resp: &models.PromptResponse{Content: models.DefaultValidationMessage, State: models.StateFailed},
		err:  models.ErrValidation,
	}
	s := New(asker, nil, nil, "@gmail.com")
	w, env := doJSON(t, s.Handler(), http.MethodPost, "/api/ask", AskRequest{Question: "  "})
	if w.Code != http.StatusBadRequest || env.Error.Code != "INVALID_QUESTION" {
		t.Errorf("got %d %s", w.Code, w.Body.String())
	}
}

func TestAskFailedAnswer(t *testing.T) {
	asker := &fakeAsker{
		resp: &models.PromptResponse{Content: models.DefaultNotInitialized, State: models.StateFailed},
		err:  models.ErrStoreNotInitialized,
	}
	s := New(asker, nil, nil, "")
	w, env := doJSON(t, s.Handler(), http.MethodPost, "/api/ask", AskRequest{Question: "fee?"})
	if w.Code != http.StatusOK || env.Success {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
	if env.Error.Code != "NOT_INITIALIZED" || env.Error.Message != models.DefaultNotInitialized {
		t.Errorf("got error %+v", env.Error)
	}
}

func TestSync(t *testing.T) {
	syncer := &fakeSyncer{}
	s := New(&fakeAsker{}, syncer, nil, "")
	w, env := doJSON(t, s.Handler(), http.MethodPost, "/api/sync?dry_run=true", nil)
	if w.Code != http.StatusOK || !env.Success || !syncer.dryRun {
		t.Errorf("got %d %s", w.Code, w.Body.String())
	}
}

func TestSyncFailure(t *testing.T) {
	s := New(&fakeAsker{}, &fakeSyncer{err: models.ErrIngestionEmpty}, nil, "")
	w, env := doJSON(t, s.Handler(), http.MethodPost, "/api/sync", nil)
	if w.Code != http.StatusInternalServerError || env.Error.Code != "SYNC_FAILED" {
		t.Errorf("got %d %s", w.Code, w.Body.String())
	}
}

func TestSyncDisabled(t *testing.T) {
	s := New(&fakeAsker{}, nil, nil, "")
	req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("got %d", w.Code)
	}
}
