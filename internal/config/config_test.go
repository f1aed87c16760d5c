package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"campus-assistant/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Strategy != string(models.StrategyVectorRetrieval) {
		t.Errorf("got strategy %q", cfg.Strategy)
	}
	if cfg.RAG.ChunkSize != 1000 || cfg.RAG.Overlap() != 150 || cfg.RAG.TopK != 4 {
		t.Errorf("unexpected rag defaults %+v", cfg.RAG)
	}
	if cfg.Timeout().Seconds() != 15 {
		t.Errorf("got timeout %s", cfg.Timeout())
	}
	if cfg.Sheet.IndexColumn != "NamaTab" || cfg.Sheet.DocumentColumn != "Link_PDF" {
		t.Errorf("unexpected sheet defaults %+v", cfg.Sheet)
	}
	if len(cfg.Prompt.Keywords) != len(models.DefaultKeywords) {
		t.Errorf("got keywords %v", cfg.Prompt.Keywords)
	}
	if cfg.ChatLLM.KeyEnv != "OPENROUTER_API_KEY" || cfg.ChatLLM.BaseURL == "" {
		t.Errorf("unexpected chat defaults %+v", cfg.ChatLLM)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
strategy: keyword
rag:
  chunk_size: 500
  chunk_overlap: 50
chat:
  provider: gemini
  model: gemini-2.0-flash
vector_store:
  type: memory
prompt:
  keywords: [fee]
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Strategy != "keyword" || cfg.RAG.ChunkSize != 500 || cfg.RAG.Overlap() != 50 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.ChatLLM.KeyEnv != "GOOGLE_API_KEY" || cfg.ChatLLM.BaseURL != "" {
		t.Errorf("unexpected gemini defaults %+v", cfg.ChatLLM)
	}
	if len(cfg.Prompt.Keywords) != 1 || cfg.Prompt.Keywords[0] != "fee" {
		t.Errorf("got keywords %v", cfg.Prompt.Keywords)
	}
}

func TestLoadConfigChunkOverlap(t *testing.T) {
	tests := []struct {
		name    string
		content string
		size    int
		overlap int
	}{
		{"explicit zero kept", "rag:\n  chunk_size: 500\n  chunk_overlap: 0\n", 500, 0},
		{"default scaled to small size", "rag:\n  chunk_size: 100\n", 100, 15},
		{"default for large size", "rag:\n  chunk_size: 2000\n", 2000, 150},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, tt.content))
			if err != nil {
				t.Fatalf("LoadConfig: %v", err)
			}
			if cfg.RAG.ChunkSize != tt.size || cfg.RAG.Overlap() != tt.overlap {
				t.Errorf("got size %d overlap %d, want %d and %d", cfg.RAG.ChunkSize, cfg.RAG.Overlap(), tt.size, tt.overlap)
			}
		})
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		target  error
	}{
		{"overlap not smaller than size", "rag:\n  chunk_size: 100\n  chunk_overlap: 100\n", models.ErrInvalidChunkConfig},
		{"unknown strategy", "strategy: guess\n", nil},
		{"unknown store", "vector_store:\n  type: redis\n", nil},
		{"unknown chat provider", "chat:\n  provider: cohere\n", nil},
		{"short encryption key", "rag:\n  encryption_key: short\n", nil},
		{"bad yaml", "rag: [\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestAPIKey(t *testing.T) {
	t.Setenv("TEST_CAMPUS_KEY", "Bearer from-env")
	c := LLMConfig{KeyEnv: "TEST_CAMPUS_KEY"}
	if got := c.APIKey(); got != "from-env" {
		t.Errorf("got %q", got)
	}
	c.Key = "inline"
	if got := c.APIKey(); got != "inline" {
		t.Errorf("got %q", got)
	}
}

func TestSystemPrompt(t *testing.T) {
	cfg := &Config{}
	if got := cfg.SystemPrompt(); got != models.DefaultSystemPrompt {
		t.Errorf("got %q", got)
	}
	cfg.Prompt.System = "inline prompt"
	cfg.Prompt.SystemEnv = "TEST_CAMPUS_PROMPT"
	if got := cfg.SystemPrompt(); got != "inline prompt" {
		t.Errorf("unset env should fall back to the inline prompt, got %q", got)
	}
	t.Setenv("TEST_CAMPUS_PROMPT", "env prompt")
	if got := cfg.SystemPrompt(); got != "env prompt" {
		t.Errorf("got %q", got)
	}
}

func TestDatabaseDSN(t *testing.T) {
	t.Setenv("TEST_CAMPUS_DSN", "postgres://env")
	cfg := &Config{Database: DatabaseConfig{DSNEnv: "TEST_CAMPUS_DSN"}}
	if got := cfg.DatabaseDSN(); got != "postgres://env" {
		t.Errorf("got %q", got)
	}
	cfg.Database.DSN = "postgres://inline"
	if got := cfg.DatabaseDSN(); got != "postgres://inline" {
		t.Errorf("got %q", got)
	}
}

func TestSampleConfigLoads(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "..", "configs", "config.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.VectorStore.Type != "chromem" || cfg.Prompt.InstructionFile == "" {
		t.Errorf("unexpected sample config %+v", cfg)
	}
}
