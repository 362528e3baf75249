package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SemanticHit is one nearest-neighbor result.
type SemanticHit struct {
	MentionID      int64      `json:"mention_id"`
	BrandID        int64      `json:"brand_id"`
	BrandName      string     `json:"brand_name"`
	Source         string     `json:"source"`
	Title          string     `json:"title"`
	URL            string     `json:"url"`
	SentimentLabel *string    `json:"sentiment_label,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	Similarity     float64    `json:"similarity"`
}

// SemanticSearchFilter narrows the nearest-neighbor scan.
type SemanticSearchFilter struct {
	BrandID *int64
	Source  string
	Limit   int
}

// SemanticSearch orders mentions by cosine distance to the query vector.
// vectorLiteral must be a pgvector input literal (see ToVectorLiteral).
func (p *Pool) SemanticSearch(ctx context.Context, vectorLiteral string, filter SemanticSearchFilter) ([]SemanticHit, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	conditions := []string{"m.embedding IS NOT NULL"}
	args := []any{vectorLiteral}

	if filter.BrandID != nil {
		args = append(args, *filter.BrandID)
		conditions = append(conditions, fmt.Sprintf("m.brand_id = $%d", len(args)))
	}
	if source := strings.TrimSpace(filter.Source); source != "" {
		args = append(args, source)
		conditions = append(conditions, fmt.Sprintf("m.source = $%d", len(args)))
	}

	args = append(args, limit)
	limitPos := len(args)

	query := fmt.Sprintf(`
		SELECT m.mention_id, m.brand_id, b.name, m.source, m.title, m.url,
		       m.sentiment_label, m.published_at,
		       1 - (m.embedding <=> $1::vector) AS similarity
		FROM mentions m
		JOIN brands b ON b.brand_id = m.brand_id
		WHERE %s
		ORDER BY m.embedding <=> $1::vector
		LIMIT $%d
	`, strings.Join(conditions, " AND "), limitPos)

	rows, err := p.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	defer rows.Close()

	var hits []SemanticHit
	for rows.Next() {
		var hit SemanticHit
		if err := rows.Scan(
			&hit.MentionID, &hit.BrandID, &hit.BrandName, &hit.Source, &hit.Title, &hit.URL,
			&hit.SentimentLabel, &hit.PublishedAt, &hit.Similarity,
		); err != nil {
			return nil, fmt.Errorf("scan semantic hit: %w", err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate semantic hits: %w", err)
	}
	return hits, nil
}
