package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MentionRecord is the write shape for the relational projection.
// EmbeddingLiteral holds a pgvector input literal or nil when embedding
// generation was skipped or failed.
type MentionRecord struct {
	BrandID          int64
	Source           string
	Title            string
	URL              string
	Content          *string
	Author           *string
	Points           *int
	SentimentLabel   *string
	SentimentScore   *float64
	Entities         json.RawMessage
	EmbeddingLiteral *string
	PublishedAt      *time.Time
	IngestedAt       time.Time
	ProcessedAt      time.Time
}

// InsertMention writes the mention, skipping the write when the URL already
// exists. It returns the row's id either way, with inserted=false on
// conflict so callers can keep the fan-out idempotent.
func (p *Pool) InsertMention(ctx context.Context, rec MentionRecord) (int64, bool, error) {
	ingestedAt := rec.IngestedAt
	if ingestedAt.IsZero() {
		ingestedAt = time.Now().UTC()
	}
	processedAt := rec.ProcessedAt
	if processedAt.IsZero() {
		processedAt = time.Now().UTC()
	}

	var mentionID int64
	err := p.QueryRow(ctx, `
		INSERT INTO mentions (
			brand_id, source, title, url, content, author, points,
			sentiment_label, sentiment_score, entities, embedding,
			published_at, ingested_at, processed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11::vector, $12, $13, $14)
		ON CONFLICT (url) DO NOTHING
		RETURNING mention_id
	`,
		rec.BrandID, rec.Source, rec.Title, rec.URL, rec.Content, rec.Author, rec.Points,
		rec.SentimentLabel, rec.SentimentScore, nullableJSON(rec.Entities), rec.EmbeddingLiteral,
		rec.PublishedAt, ingestedAt, processedAt,
	).Scan(&mentionID)
	if err == nil {
		return mentionID, true, nil
	}
	if !IsNoRows(err) {
		return 0, false, fmt.Errorf("insert mention: %w", err)
	}

	mentionID, exists, err := p.MentionIDByURL(ctx, rec.URL)
	if err != nil {
		return 0, false, err
	}
	if !exists {
		return 0, false, fmt.Errorf("mention conflicted on url %q but cannot be found", rec.URL)
	}
	return mentionID, false, nil
}

// MentionIDByURL looks up the id of a persisted mention.
func (p *Pool) MentionIDByURL(ctx context.Context, url string) (int64, bool, error) {
	var mentionID int64
	err := p.QueryRow(ctx, `SELECT mention_id FROM mentions WHERE url = $1`, url).Scan(&mentionID)
	if IsNoRows(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("select mention by url: %w", err)
	}
	return mentionID, true, nil
}

// RecentBrandTitles returns the most recently ingested titles for a brand,
// newest first, for the near-duplicate window.
func (p *Pool) RecentBrandTitles(ctx context.Context, brandID int64, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := p.Query(ctx, `
		SELECT title
		FROM mentions
		WHERE brand_id = $1
		ORDER BY ingested_at DESC
		LIMIT $2
	`, brandID, limit)
	if err != nil {
		return nil, fmt.Errorf("select recent titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate titles: %w", err)
	}
	return titles, nil
}

// MentionSummary is the read shape for listings.
type MentionSummary struct {
	MentionID      int64           `json:"mention_id"`
	BrandID        int64           `json:"brand_id"`
	BrandName      string          `json:"brand_name"`
	Source         string          `json:"source"`
	Title          string          `json:"title"`
	URL            string          `json:"url"`
	SentimentLabel *string         `json:"sentiment_label,omitempty"`
	SentimentScore *float64        `json:"sentiment_score,omitempty"`
	Entities       json.RawMessage `json:"entities,omitempty"`
	PublishedAt    *time.Time      `json:"published_at,omitempty"`
	IngestedAt     time.Time       `json:"ingested_at"`
}

// MentionListFilter narrows ListMentions.
type MentionListFilter struct {
	BrandID        *int64
	Source         string
	SentimentLabel string
	Limit          int
	Offset         int
}

// ListMentions returns persisted mentions, newest first.
func (p *Pool) ListMentions(ctx context.Context, filter MentionListFilter) ([]MentionSummary, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 25
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	conditions := []string{"TRUE"}
	args := []any{}

	if filter.BrandID != nil {
		args = append(args, *filter.BrandID)
		conditions = append(conditions, fmt.Sprintf("m.brand_id = $%d", len(args)))
	}
	if source := strings.TrimSpace(filter.Source); source != "" {
		args = append(args, source)
		conditions = append(conditions, fmt.Sprintf("m.source = $%d", len(args)))
	}
	if label := strings.TrimSpace(filter.SentimentLabel); label != "" {
		args = append(args, label)
		conditions = append(conditions, fmt.Sprintf("m.sentiment_label = $%d", len(args)))
	}

	args = append(args, limit)
	limitPos := len(args)
	args = append(args, offset)
	offsetPos := len(args)

	query := fmt.Sprintf(`
		SELECT m.mention_id, m.brand_id, b.name, m.source, m.title, m.url,
		       m.sentiment_label, m.sentiment_score, m.entities, m.published_at, m.ingested_at
		FROM mentions m
		JOIN brands b ON b.brand_id = m.brand_id
		WHERE %s
		ORDER BY m.ingested_at DESC
		LIMIT $%d OFFSET $%d
	`, strings.Join(conditions, " AND "), limitPos, offsetPos)

	rows, err := p.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list mentions: %w", err)
	}
	defer rows.Close()

	var mentions []MentionSummary
	for rows.Next() {
		var m MentionSummary
		if err := rows.Scan(
			&m.MentionID, &m.BrandID, &m.BrandName, &m.Source, &m.Title, &m.URL,
			&m.SentimentLabel, &m.SentimentScore, &m.Entities, &m.PublishedAt, &m.IngestedAt,
		); err != nil {
			return nil, fmt.Errorf("scan mention: %w", err)
		}
		mentions = append(mentions, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mentions: %w", err)
	}
	return mentions, nil
}

// EmbeddingCandidate is a mention persisted without an embedding.
type EmbeddingCandidate struct {
	MentionID int64
	Title     string
	Content   *string
}

// MentionsMissingEmbedding lists mentions eligible for embedding backfill,
// oldest first.
func (p *Pool) MentionsMissingEmbedding(ctx context.Context, limit int) ([]EmbeddingCandidate, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := p.Query(ctx, `
		SELECT mention_id, title, content
		FROM mentions
		WHERE embedding IS NULL
		ORDER BY mention_id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("select mentions missing embedding: %w", err)
	}
	defer rows.Close()

	var candidates []EmbeddingCandidate
	for rows.Next() {
		var candidate EmbeddingCandidate
		if err := rows.Scan(&candidate.MentionID, &candidate.Title, &candidate.Content); err != nil {
			return nil, fmt.Errorf("scan embedding candidate: %w", err)
		}
		candidates = append(candidates, candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embedding candidates: %w", err)
	}
	return candidates, nil
}

// SetMentionEmbedding stores a backfilled embedding.
func (p *Pool) SetMentionEmbedding(ctx context.Context, mentionID int64, literal string) error {
	tag, err := p.Exec(ctx, `UPDATE mentions SET embedding = $1::vector WHERE mention_id = $2`, literal, mentionID)
	if err != nil {
		return fmt.Errorf("update mention embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mention %d not found", mentionID)
	}
	return nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
