package db

import (
	"encoding/json"
	"time"
)

// Brand maps brands.
type Brand struct {
	BrandID   int64     `gorm:"column:brand_id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;type:text;not null;unique"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Brand) TableName() string { return "brands" }

// Mention maps mentions. URL carries the idempotency constraint: the same
// mention processed twice lands on ON CONFLICT DO NOTHING.
type Mention struct {
	MentionID      int64           `gorm:"column:mention_id;primaryKey;autoIncrement"`
	BrandID        int64           `gorm:"column:brand_id;type:bigint;not null;index"`
	Source         string          `gorm:"column:source;type:text;not null"`
	Title          string          `gorm:"column:title;type:text;not null"`
	URL            string          `gorm:"column:url;type:text;not null;unique"`
	Content        *string         `gorm:"column:content;type:text"`
	Author         *string         `gorm:"column:author;type:text"`
	Points         *int            `gorm:"column:points;type:integer"`
	SentimentLabel *string         `gorm:"column:sentiment_label;type:text"`
	SentimentScore *float64        `gorm:"column:sentiment_score;type:double precision"`
	Entities       json.RawMessage `gorm:"column:entities;type:jsonb"`
	Embedding      *string         `gorm:"column:embedding;type:vector(768)"`
	PublishedAt    *time.Time      `gorm:"column:published_at;type:timestamptz"`
	IngestedAt     time.Time       `gorm:"column:ingested_at;type:timestamptz;not null;default:now()"`
	ProcessedAt    *time.Time      `gorm:"column:processed_at;type:timestamptz"`
	CreatedAt      time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Mention) TableName() string { return "mentions" }

func autoMigrateModels() []any {
	return []any{
		&Brand{},
		&Mention{},
	}
}
