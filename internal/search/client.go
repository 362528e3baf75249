package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Document is the full-text projection of an analyzed mention. The document
// id in the index is the relational mention_id, which makes re-indexing the
// same mention an overwrite instead of a duplicate.
type Document struct {
	MentionID      int64      `json:"mention_id"`
	BrandID        int64      `json:"brand_id"`
	BrandName      string     `json:"brand_name"`
	Title          string     `json:"title"`
	Content        string     `json:"content,omitempty"`
	URL            string     `json:"url"`
	Source         string     `json:"source"`
	Author         string     `json:"author,omitempty"`
	Points         *int       `json:"points,omitempty"`
	SentimentScore *float64   `json:"sentiment_score,omitempty"`
	SentimentLabel string     `json:"sentiment_label,omitempty"`
	Domain         string     `json:"domain,omitempty"`
	Language       string     `json:"language,omitempty"`
	WordCount      *int       `json:"word_count,omitempty"`
	ReadingTime    *int       `json:"reading_time,omitempty"`
	QualityScore   *int       `json:"quality_score,omitempty"`
	PublishedDate  *time.Time `json:"published_date,omitempty"`
	IngestedDate   *time.Time `json:"ingested_date,omitempty"`
	ProcessedDate  *time.Time `json:"processed_date,omitempty"`
	IndexedDate    time.Time  `json:"indexed_date"`
}

// Client talks to Elasticsearch over its REST API.
type Client struct {
	http   *resty.Client
	index  string
	logger zerolog.Logger
}

func NewClient(baseURL, index string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if strings.TrimSpace(index) == "" {
		index = "mentions"
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(strings.TrimSpace(baseURL), "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:   httpClient,
		index:  index,
		logger: logger,
	}
}

// EnsureIndex creates the mentions index with its mapping when missing.
func (c *Client) EnsureIndex(ctx context.Context) error {
	head, err := c.http.R().SetContext(ctx).Head("/" + c.index)
	if err != nil {
		return fmt.Errorf("check index %s: %w", c.index, err)
	}
	if head.StatusCode() == http.StatusOK {
		return nil
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(indexMapping).
		Put("/" + c.index)
	if err != nil {
		return fmt.Errorf("create index %s: %w", c.index, err)
	}
	if resp.IsError() {
		return fmt.Errorf("create index %s: status %d: %s", c.index, resp.StatusCode(), resp.String())
	}

	c.logger.Info().Str("index", c.index).Msg("search index created")
	return nil
}

// IndexMention upserts the document under the relational id.
func (c *Client) IndexMention(ctx context.Context, doc Document) error {
	if doc.MentionID == 0 {
		return fmt.Errorf("document requires a mention id")
	}
	if doc.IndexedDate.IsZero() {
		doc.IndexedDate = time.Now().UTC()
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(doc).
		Put(fmt.Sprintf("/%s/_doc/%d", c.index, doc.MentionID))
	if err != nil {
		return fmt.Errorf("index mention %d: %w", doc.MentionID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("index mention %d: status %d: %s", doc.MentionID, resp.StatusCode(), resp.String())
	}
	return nil
}

// Hit is one full-text result.
type Hit struct {
	Score      float64             `json:"score"`
	Document   Document            `json:"document"`
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// Result carries one page of full-text results.
type Result struct {
	Total  int64 `json:"total"`
	TookMS int64 `json:"took_ms"`
	Hits   []Hit `json:"hits"`
}

// Search runs a fuzzy multi-match over title and content with optional term
// filters, ranked by relevance then recency.
func (c *Client) Search(ctx context.Context, query Query) (Result, error) {
	body := buildSearchBody(query)

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/" + c.index + "/_search")
	if err != nil {
		return Result{}, fmt.Errorf("search mentions: %w", err)
	}
	if resp.IsError() {
		return Result{}, fmt.Errorf("search mentions: status %d: %s", resp.StatusCode(), resp.String())
	}

	var raw struct {
		Took int64 `json:"took"`
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Score     float64             `json:"_score"`
				Source    Document            `json:"_source"`
				Highlight map[string][]string `json:"highlight"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return Result{}, fmt.Errorf("decode search response: %w", err)
	}

	result := Result{
		Total:  raw.Hits.Total.Value,
		TookMS: raw.Took,
		Hits:   make([]Hit, 0, len(raw.Hits.Hits)),
	}
	for _, hit := range raw.Hits.Hits {
		result.Hits = append(result.Hits, Hit{
			Score:      hit.Score,
			Document:   hit.Source,
			Highlights: hit.Highlight,
		})
	}
	return result, nil
}

// GetMention fetches one document by relational id.
func (c *Client) GetMention(ctx context.Context, mentionID int64) (Document, bool, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/%s/_doc/%d", c.index, mentionID))
	if err != nil {
		return Document{}, false, fmt.Errorf("get mention %d: %w", mentionID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return Document{}, false, nil
	}
	if resp.IsError() {
		return Document{}, false, fmt.Errorf("get mention %d: status %d: %s", mentionID, resp.StatusCode(), resp.String())
	}

	var raw struct {
		Found  bool     `json:"found"`
		Source Document `json:"_source"`
	}
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return Document{}, false, fmt.Errorf("decode get response: %w", err)
	}
	if !raw.Found {
		return Document{}, false, nil
	}
	return raw.Source, true, nil
}

// Ping verifies the cluster answers for health checks.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/")
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("ping elasticsearch: status %d", resp.StatusCode())
	}
	return nil
}
