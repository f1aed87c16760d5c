package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"campus-assistant/internal/models"
)

type Config struct {
	Strategy    string            `yaml:"strategy"`
	Sheet       SheetConfig       `yaml:"sheet"`
	Pages       []PageConfig      `yaml:"pages"`
	Documents   []string          `yaml:"documents"`
	HTTP        HTTPConfig        `yaml:"http"`
	EmbedLLM    LLMConfig         `yaml:"embedding"`
	ChatLLM     LLMConfig         `yaml:"chat"`
	RAG         RAGConfig         `yaml:"rag"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Database    DatabaseConfig    `yaml:"database"`
	Qdrant      QdrantConfig      `yaml:"qdrant"`
	Snapshot    SnapshotConfig    `yaml:"snapshot"`
	Prompt      PromptConfig      `yaml:"prompt"`
	QuestionLog QuestionLogConfig `yaml:"question_log"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
}

// SheetConfig points at the spreadsheet index listing the data tabs.
type SheetConfig struct {
	IndexURL       string `yaml:"index_url"`
	IndexColumn    string `yaml:"index_column"`
	DocumentColumn string `yaml:"document_column"`
}

// PageConfig describes a web page scraped into a numbered list.
type PageConfig struct {
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
	Class string `yaml:"class"`
}

type HTTPConfig struct {
	TimeoutSecs int `yaml:"timeout_secs"`
}

// LLMConfig configures a remote chat or embedding endpoint.
type LLMConfig struct {
	Provider  string `yaml:"provider"`
	BaseURL   string `yaml:"base_url"`
	Key       string `yaml:"key"`
	KeyEnv    string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
	MaxTokens int    `yaml:"max_tokens"`
}

type RAGConfig struct {
	ChunkSize     int    `yaml:"chunk_size"`
	ChunkOverlap  *int   `yaml:"chunk_overlap"`
	TopK          int    `yaml:"top_k"`
	PersistDir    string `yaml:"persist_dir"`
	Collection    string `yaml:"collection"`
	InMemory      bool   `yaml:"in_memory"`
	Compress      bool   `yaml:"compress"`
	EncryptionKey string `yaml:"encryption_key"`
}

type VectorStoreConfig struct {
	Type string `yaml:"type"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	DSNEnv string `yaml:"dsn_env"`
	Table  string `yaml:"table"`
	Debug  bool   `yaml:"debug"`
}

type QdrantConfig struct {
	Addr       string `yaml:"addr"`
	Collection string `yaml:"collection"`
}

// SnapshotConfig selects where exported store snapshots live.
type SnapshotConfig struct {
	Storage   string `yaml:"storage"`
	LocalPath string `yaml:"local_path"`
	Key       string `yaml:"key"`
	S3Bucket  string `yaml:"s3_bucket"`
	S3Region  string `yaml:"s3_region"`
}

type PromptConfig struct {
	System          string   `yaml:"system"`
	SystemEnv       string   `yaml:"system_env"`
	InstructionFile string   `yaml:"instruction_file"`
	Keywords        []string `yaml:"keywords"`
	RefusalMessage  string   `yaml:"refusal_message"`
	DegradedMessage string   `yaml:"degraded_message"`
	FailureMessage  string   `yaml:"failure_message"`
	ContextHeader   string   `yaml:"context_header"`
	QuestionHeader  string   `yaml:"question_header"`
}

type QuestionLogConfig struct {
	URL    string `yaml:"url"`
	URLEnv string `yaml:"url_env"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	EmailDomain string `yaml:"email_domain"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 150
	defaultTopK         = 4
	defaultTimeoutSecs  = 15
	defaultBatchSize    = 100
	defaultPersistDir   = "./db_campus"
	defaultCollection   = "campus_collection"
	defaultOpenRouter   = "https://openrouter.ai/api/v1"
)

// LoadConfig reads the YAML file at path, loads .env and applies defaults.
// A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Strategy == "" {
		cfg.Strategy = string(models.StrategyVectorRetrieval)
	}
	if cfg.Sheet.IndexColumn == "" {
		cfg.Sheet.IndexColumn = models.DefaultIndexColumn
	}
	if cfg.Sheet.DocumentColumn == "" {
		cfg.Sheet.DocumentColumn = models.DefaultDocumentColumn
	}
	if cfg.HTTP.TimeoutSecs == 0 {
		cfg.HTTP.TimeoutSecs = defaultTimeoutSecs
	}
	applyLLMDefaults(&cfg.EmbedLLM, "openai", "openai/text-embedding-3-small")
	applyLLMDefaults(&cfg.ChatLLM, "openai", "google/gemini-2.0-flash-lite-001")
	if cfg.EmbedLLM.BatchSize == 0 {
		cfg.EmbedLLM.BatchSize = defaultBatchSize
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = defaultChunkSize
	}
	if cfg.RAG.ChunkOverlap == nil {
		overlap := defaultChunkOverlap
		if overlap >= cfg.RAG.ChunkSize {
			overlap = cfg.RAG.ChunkSize * defaultChunkOverlap / defaultChunkSize
		}
		cfg.RAG.ChunkOverlap = &overlap
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = defaultTopK
	}
	if cfg.RAG.PersistDir == "" {
		cfg.RAG.PersistDir = defaultPersistDir
	}
	if cfg.RAG.Collection == "" {
		cfg.RAG.Collection = defaultCollection
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "chromem"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "pgdriver"
	}
	if cfg.Database.Table == "" {
		cfg.Database.Table = "chunks"
	}
	if cfg.Qdrant.Addr == "" {
		cfg.Qdrant.Addr = "localhost:6334"
	}
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = cfg.RAG.Collection
	}
	if cfg.Snapshot.Storage == "" {
		cfg.Snapshot.Storage = "local"
	}
	if cfg.Snapshot.LocalPath == "" {
		cfg.Snapshot.LocalPath = "./snapshots"
	}
	if cfg.Snapshot.Key == "" {
		cfg.Snapshot.Key = cfg.RAG.Collection + ".chromem"
	}
	if cfg.Snapshot.S3Region == "" {
		cfg.Snapshot.S3Region = "us-east-1"
	}
	if cfg.Prompt.Keywords == nil {
		cfg.Prompt.Keywords = append([]string(nil), models.DefaultKeywords...)
	}
	if cfg.Prompt.RefusalMessage == "" {
		cfg.Prompt.RefusalMessage = models.DefaultRefusalMessage
	}
	if cfg.Prompt.DegradedMessage == "" {
		cfg.Prompt.DegradedMessage = models.DefaultDegradedMessage
	}
	if cfg.Prompt.FailureMessage == "" {
		cfg.Prompt.FailureMessage = models.DefaultFailureMessage
	}
	if cfg.Prompt.ContextHeader == "" {
		cfg.Prompt.ContextHeader = models.DefaultContextHeader
	}
	if cfg.Prompt.QuestionHeader == "" {
		cfg.Prompt.QuestionHeader = models.DefaultQuestionHeader
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.EmailDomain == "" {
		cfg.Server.EmailDomain = models.DefaultEmailDomain
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func applyLLMDefaults(c *LLMConfig, provider, model string) {
	if c.Provider == "" {
		c.Provider = provider
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.BaseURL == "" && c.Provider == "openai" {
		c.BaseURL = defaultOpenRouter
	}
	if c.KeyEnv == "" {
		switch c.Provider {
		case "gemini":
			c.KeyEnv = "GOOGLE_API_KEY"
		case "anthropic":
			c.KeyEnv = "ANTHROPIC_API_KEY"
		default:
			c.KeyEnv = "OPENROUTER_API_KEY"
		}
	}
}

// Validate rejects settings that would fail later at runtime.
func (c *Config) Validate() error {
	overlap := c.RAG.Overlap()
	if c.RAG.ChunkSize <= 0 || overlap < 0 || overlap >= c.RAG.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap (%d) must be smaller than chunk_size (%d)",
			models.ErrInvalidChunkConfig, overlap, c.RAG.ChunkSize)
	}
	if _, err := models.ParseStrategy(c.Strategy); err != nil {
		return err
	}
	switch c.VectorStore.Type {
	case "chromem", "memory", "postgres", "qdrant":
	default:
		return fmt.Errorf("unknown vector store type: %q", c.VectorStore.Type)
	}
	switch c.EmbedLLM.Provider {
	case "openai", "langchain-openai", "ollama", "gemini":
	default:
		return fmt.Errorf("unknown embedding provider: %q", c.EmbedLLM.Provider)
	}
	switch c.ChatLLM.Provider {
	case "openai", "gemini", "anthropic":
	default:
		return fmt.Errorf("unknown chat provider: %q", c.ChatLLM.Provider)
	}
	if c.RAG.EncryptionKey != "" && len(c.RAG.EncryptionKey) != 32 {
		return errors.New("encryption_key must be 32 bytes long")
	}
	return nil
}

// Overlap returns the configured chunk overlap. An absent key counts as zero
// until defaults are applied.
func (r *RAGConfig) Overlap() int {
	if r.ChunkOverlap == nil {
		return 0
	}
	return *r.ChunkOverlap
}

// APIKey resolves the key, preferring the inline value over the environment.
func (c *LLMConfig) APIKey() string {
	if c.Key != "" {
		return strings.TrimPrefix(c.Key, "Bearer ")
	}
	return strings.TrimPrefix(os.Getenv(c.KeyEnv), "Bearer ")
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSecs) * time.Second
}

// SystemPrompt returns the inline system prompt, its environment override, or the default.
func (c *Config) SystemPrompt() string {
	if c.Prompt.SystemEnv != "" {
		if v := os.Getenv(c.Prompt.SystemEnv); v != "" {
			return v
		}
	}
	if c.Prompt.System != "" {
		return c.Prompt.System
	}
	return models.DefaultSystemPrompt
}

// DatabaseDSN resolves the connection string from the file or the environment.
func (c *Config) DatabaseDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	if c.Database.DSNEnv != "" {
		return os.Getenv(c.Database.DSNEnv)
	}
	return os.Getenv("DATABASE_URL")
}

func (c *Config) QuestionLogURL() string {
	if c.QuestionLog.URL != "" {
		return c.QuestionLog.URL
	}
	if c.QuestionLog.URLEnv != "" {
		return os.Getenv(c.QuestionLog.URLEnv)
	}
	return ""
}
