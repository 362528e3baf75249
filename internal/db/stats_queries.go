package db

import (
	"context"
	"fmt"
	"time"
)

// BrandStats summarizes persisted mentions for one brand.
type BrandStats struct {
	BrandID       int64      `json:"brand_id"`
	BrandName     string     `json:"brand_name"`
	Total         int64      `json:"total"`
	Positive      int64      `json:"positive"`
	Neutral       int64      `json:"neutral"`
	Negative      int64      `json:"negative"`
	AvgScore      *float64   `json:"avg_score,omitempty"`
	Embedded      int64      `json:"embedded"`
	LastMentionAt *time.Time `json:"last_mention_at,omitempty"`
}

// QueryBrandStats aggregates sentiment and coverage per brand. When brandID
// is non-nil only that brand is reported.
func (p *Pool) QueryBrandStats(ctx context.Context, brandID *int64) ([]BrandStats, error) {
	conditions := "TRUE"
	args := []any{}
	if brandID != nil {
		conditions = "b.brand_id = $1"
		args = append(args, *brandID)
	}

	query := fmt.Sprintf(`
		SELECT b.brand_id, b.name,
		       COUNT(m.mention_id),
		       COUNT(*) FILTER (WHERE m.sentiment_label = 'Positive'),
		       COUNT(*) FILTER (WHERE m.sentiment_label = 'Neutral'),
		       COUNT(*) FILTER (WHERE m.sentiment_label = 'Negative'),
		       AVG(m.sentiment_score),
		       COUNT(m.embedding),
		       MAX(m.ingested_at)
		FROM brands b
		LEFT JOIN mentions m ON m.brand_id = b.brand_id
		WHERE %s
		GROUP BY b.brand_id, b.name
		ORDER BY b.name
	`, conditions)

	rows, err := p.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query brand stats: %w", err)
	}
	defer rows.Close()

	var stats []BrandStats
	for rows.Next() {
		var s BrandStats
		if err := rows.Scan(
			&s.BrandID, &s.BrandName, &s.Total, &s.Positive, &s.Neutral, &s.Negative,
			&s.AvgScore, &s.Embedded, &s.LastMentionAt,
		); err != nil {
			return nil, fmt.Errorf("scan brand stats: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate brand stats: %w", err)
	}
	return stats, nil
}
