package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"8"`

	RedisURL       string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	StreamMaxLen   int64  `envconfig:"STREAM_MAX_LEN" default:"10000"`
	ConsumerBlock  int    `envconfig:"CONSUMER_BLOCK_MS" default:"5000"`
	ConsumerBatch  int    `envconfig:"CONSUMER_BATCH" default:"10"`
	HashTTLHours   int    `envconfig:"DEDUP_HASH_TTL_HOURS" default:"720"`
	ConsumerPrefix string `envconfig:"CONSUMER_NAME_PREFIX" default:"mentions"`

	ElasticsearchURL string `envconfig:"ELASTICSEARCH_URL" default:"http://localhost:9200"`
	SearchIndex      string `envconfig:"SEARCH_INDEX" default:"mentions"`

	OllamaURL        string `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`
	ChatModel        string `envconfig:"CHAT_MODEL" default:"llama3"`
	EmbeddingModel   string `envconfig:"EMBEDDING_MODEL" default:"nomic-embed-text"`
	EmbeddingDims    int    `envconfig:"EMBEDDING_DIMENSIONS" default:"768"`
	InferenceTimeout int    `envconfig:"INFERENCE_TIMEOUT_SECONDS" default:"60"`

	RelevanceThreshold  int     `envconfig:"RELEVANCE_THRESHOLD" default:"50"`
	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.85"`
	RecentTitleWindow   int     `envconfig:"RECENT_TITLE_WINDOW" default:"100"`
	ProcessConcurrency  int     `envconfig:"PROCESS_CONCURRENCY" default:"4"`
	FetchTimeout        int     `envconfig:"FETCH_TIMEOUT_SECONDS" default:"12"`
	MinSnippetChars     int     `envconfig:"MIN_SNIPPET_CHARS" default:"100"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) cannot exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if strings.TrimSpace(c.RedisURL) == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.StreamMaxLen < 1 {
		return fmt.Errorf("STREAM_MAX_LEN must be >= 1")
	}
	if c.ConsumerBatch < 1 {
		return fmt.Errorf("CONSUMER_BATCH must be >= 1")
	}
	if c.HashTTLHours < 1 {
		return fmt.Errorf("DEDUP_HASH_TTL_HOURS must be >= 1")
	}
	if c.EmbeddingDims < 1 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be >= 1")
	}
	if c.RelevanceThreshold < 0 || c.RelevanceThreshold > 100 {
		return fmt.Errorf("RELEVANCE_THRESHOLD must be between 0 and 100")
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be in (0, 1]")
	}
	if c.RecentTitleWindow < 1 {
		return fmt.Errorf("RECENT_TITLE_WINDOW must be >= 1")
	}
	if c.ProcessConcurrency < 1 {
		return fmt.Errorf("PROCESS_CONCURRENCY must be >= 1")
	}
	return nil
}
