package search

import "strings"

// Query describes a full-text search request.
type Query struct {
	Text      string
	BrandID   *int64
	Source    string
	Sentiment string
	Limit     int
}

// buildSearchBody constructs the request body: a multi_match over title^2
// and content with AUTO fuzziness, term filters, highlighting, and a
// relevance-then-recency sort. Blank query text degrades to match_all.
func buildSearchBody(query Query) map[string]any {
	limit := query.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	must := []any{}
	if text := strings.TrimSpace(query.Text); text != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":     text,
				"fields":    []string{"title^2", "content"},
				"type":      "best_fields",
				"fuzziness": "AUTO",
			},
		})
	} else {
		must = append(must, map[string]any{"match_all": map[string]any{}})
	}

	filters := []any{}
	if query.BrandID != nil {
		filters = append(filters, map[string]any{
			"term": map[string]any{"brand_id": *query.BrandID},
		})
	}
	if source := strings.TrimSpace(query.Source); source != "" {
		filters = append(filters, map[string]any{
			"term": map[string]any{"source": source},
		})
	}
	if sentiment := strings.TrimSpace(query.Sentiment); sentiment != "" {
		filters = append(filters, map[string]any{
			"term": map[string]any{"sentiment_label": sentiment},
		})
	}

	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must":   must,
				"filter": filters,
			},
		},
		"size": limit,
		"highlight": map[string]any{
			"fields": map[string]any{
				"title":   map[string]any{},
				"content": map[string]any{},
			},
		},
		"sort": []any{
			map[string]any{"_score": map[string]any{"order": "desc"}},
			map[string]any{"published_date": map[string]any{"order": "desc", "missing": "_last"}},
		},
	}
}
