package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"horse.fit/mentions/internal/stream"
)

const (
	hackerNewsSearchURL = "https://hn.algolia.com/api/v1/search"
	hnSnippetLimit      = 500
)

// HackerNewsSource searches stories through the Algolia HN API.
type HackerNewsSource struct {
	http *resty.Client
}

func NewHackerNewsSource(timeout time.Duration) *HackerNewsSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HackerNewsSource{
		http: resty.New().SetTimeout(timeout),
	}
}

func (s *HackerNewsSource) Name() string { return "hackernews" }

func (s *HackerNewsSource) Fetch(ctx context.Context, target Target, limit int) ([]stream.MentionEvent, error) {
	if limit <= 0 {
		limit = 10
	}

	resp, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":       target.BrandName,
			"tags":        "story",
			"hitsPerPage": fmt.Sprint(limit),
		}).
		Get(hackerNewsSearchURL)
	if err != nil {
		return nil, fmt.Errorf("fetch hackernews: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch hackernews: status %d", resp.StatusCode())
	}

	return parseAlgoliaHits(resp.Body(), target, limit)
}

func parseAlgoliaHits(body []byte, target Target, limit int) ([]stream.MentionEvent, error) {
	var payload struct {
		Hits []struct {
			ObjectID  string `json:"objectID"`
			Title     string `json:"title"`
			URL       string `json:"url"`
			StoryText string `json:"story_text"`
			Author    string `json:"author"`
			Points    *int   `json:"points"`
			CreatedAt string `json:"created_at"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode hackernews response: %w", err)
	}

	events := make([]stream.MentionEvent, 0, len(payload.Hits))
	for _, hit := range payload.Hits {
		if len(events) >= limit {
			break
		}
		if hit.Title == "" {
			continue
		}

		url := hit.URL
		if url == "" {
			url = "https://news.ycombinator.com/item?id=" + hit.ObjectID
		}

		event := stream.MentionEvent{
			Source:         "hackernews",
			Title:          hit.Title,
			URL:            url,
			ContentSnippet: truncate(hit.StoryText, hnSnippetLimit),
			Author:         hit.Author,
			Points:         hit.Points,
			BrandID:        target.BrandID,
			BrandName:      target.BrandName,
		}
		if parsed, err := time.Parse(time.RFC3339, hit.CreatedAt); err == nil {
			utc := parsed.UTC()
			event.PublishedAt = &utc
		}
		events = append(events, event)
	}
	return events, nil
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
