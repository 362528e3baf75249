package ingest

import (
	"context"

	"horse.fit/mentions/internal/stream"
)

// Target identifies the brand a source should search for.
type Target struct {
	BrandID   int64
	BrandName string
}

// Source fetches raw mention candidates for one brand from an external
// service.
type Source interface {
	Name() string
	Fetch(ctx context.Context, target Target, limit int) ([]stream.MentionEvent, error)
}
