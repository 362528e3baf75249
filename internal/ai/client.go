package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Config holds the inference endpoint settings.
type Config struct {
	ServerURL      string
	ChatModel      string
	EmbeddingModel string
	Dimensions     int
	RequestTimeout time.Duration
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.ServerURL) == "" {
		c.ServerURL = "http://localhost:11434"
	}
	if strings.TrimSpace(c.ChatModel) == "" {
		c.ChatModel = "llama3"
	}
	if strings.TrimSpace(c.EmbeddingModel) == "" {
		c.EmbeddingModel = "nomic-embed-text"
	}
	if c.Dimensions <= 0 {
		c.Dimensions = 768
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 60 * time.Second
	}
}

// Client talks to an Ollama-compatible endpoint for sentiment, entity
// extraction, and embeddings. Construct it explicitly and inject it;
// there is no package-level instance.
type Client struct {
	chat     llms.Model
	embedder embeddings.Embedder
	cfg      Config
	logger   zerolog.Logger
}

func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	cfg.normalize()

	chat, err := ollama.New(
		ollama.WithServerURL(cfg.ServerURL),
		ollama.WithModel(cfg.ChatModel),
	)
	if err != nil {
		return nil, fmt.Errorf("create chat model client: %w", err)
	}

	embedModel, err := ollama.New(
		ollama.WithServerURL(cfg.ServerURL),
		ollama.WithModel(cfg.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding model client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(embedModel, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	return &Client{
		chat:     chat,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Dimensions reports the expected embedding width.
func (c *Client) Dimensions() int {
	return c.cfg.Dimensions
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
