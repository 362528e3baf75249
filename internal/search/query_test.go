package search

import (
	"encoding/json"
	"testing"
)

func TestBuildSearchBodyFullText(t *testing.T) {
	t.Parallel()

	brandID := int64(3)
	body := buildSearchBody(Query{
		Text:      "acme outage",
		BrandID:   &brandID,
		Source:    "hackernews",
		Sentiment: "Negative",
		Limit:     5,
	})

	encoded, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("body is not serializable: %v", err)
	}

	var decoded struct {
		Query struct {
			Bool struct {
				Must []map[string]struct {
					Query     string   `json:"query"`
					Fields    []string `json:"fields"`
					Fuzziness string   `json:"fuzziness"`
				} `json:"must"`
				Filter []map[string]map[string]any `json:"filter"`
			} `json:"bool"`
		} `json:"query"`
		Size      int            `json:"size"`
		Highlight map[string]any `json:"highlight"`
	}
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if len(decoded.Query.Bool.Must) != 1 {
		t.Fatalf("expected 1 must clause, got %d", len(decoded.Query.Bool.Must))
	}
	match := decoded.Query.Bool.Must[0]["multi_match"]
	if match.Query != "acme outage" {
		t.Fatalf("query text = %q", match.Query)
	}
	if len(match.Fields) != 2 || match.Fields[0] != "title^2" {
		t.Fatalf("fields = %v, want title boosted first", match.Fields)
	}
	if match.Fuzziness != "AUTO" {
		t.Fatalf("fuzziness = %q, want AUTO", match.Fuzziness)
	}

	if len(decoded.Query.Bool.Filter) != 3 {
		t.Fatalf("expected 3 term filters, got %d", len(decoded.Query.Bool.Filter))
	}
	if decoded.Size != 5 {
		t.Fatalf("size = %d, want 5", decoded.Size)
	}
	if decoded.Highlight == nil {
		t.Fatalf("highlight section missing")
	}
}

func TestBuildSearchBodyBlankTextMatchesAll(t *testing.T) {
	t.Parallel()

	body := buildSearchBody(Query{Text: "   "})

	boolQuery := body["query"].(map[string]any)["bool"].(map[string]any)
	must := boolQuery["must"].([]any)
	if len(must) != 1 {
		t.Fatalf("expected 1 must clause, got %d", len(must))
	}
	if _, exists := must[0].(map[string]any)["match_all"]; !exists {
		t.Fatalf("blank query must degrade to match_all")
	}
	if filters := boolQuery["filter"].([]any); len(filters) != 0 {
		t.Fatalf("expected no filters, got %d", len(filters))
	}
}

func TestBuildSearchBodyClampsLimit(t *testing.T) {
	t.Parallel()

	if got := buildSearchBody(Query{Limit: 0})["size"].(int); got != 20 {
		t.Fatalf("default size = %d, want 20", got)
	}
	if got := buildSearchBody(Query{Limit: 5000})["size"].(int); got != 20 {
		t.Fatalf("oversized limit should clamp to default, got %d", got)
	}
}
