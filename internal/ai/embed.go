package ai

import (
	"context"
	"fmt"
	"strings"
)

const embedInputLimit = 1000

// EmbedText generates one embedding for the mention text and verifies the
// vector width matches the configured dimensions.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if c == nil || c.embedder == nil {
		return nil, fmt.Errorf("ai client is not initialized")
	}

	input := PrepareEmbeddingInput(text, "")
	if input == "" {
		return nil, fmt.Errorf("embedding input is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	vectors, err := c.embedder.EmbedDocuments(ctx, []string{input})
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
	}
	if len(vectors[0]) != c.cfg.Dimensions {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(vectors[0]), c.cfg.Dimensions)
	}
	return vectors[0], nil
}

// PrepareEmbeddingInput joins title and content and clips the result to the
// model's useful input window.
func PrepareEmbeddingInput(title, content string) string {
	parts := make([]string, 0, 2)
	if t := strings.TrimSpace(title); t != "" {
		parts = append(parts, t)
	}
	if c := strings.TrimSpace(content); c != "" {
		parts = append(parts, c)
	}
	return truncateRunes(strings.Join(parts, "\n\n"), embedInputLimit)
}
