package ingest

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"horse.fit/mentions/internal/stream"
)

const googleNewsFeedURL = "https://news.google.com/rss/search"

// GoogleNewsSource searches the Google News RSS feed.
type GoogleNewsSource struct {
	http *resty.Client
}

func NewGoogleNewsSource(timeout time.Duration) *GoogleNewsSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoogleNewsSource{
		http: resty.New().SetTimeout(timeout),
	}
}

func (s *GoogleNewsSource) Name() string { return "google_news" }

func (s *GoogleNewsSource) Fetch(ctx context.Context, target Target, limit int) ([]stream.MentionEvent, error) {
	if limit <= 0 {
		limit = 10
	}

	resp, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":    target.BrandName,
			"hl":   "en-US",
			"gl":   "US",
			"ceid": "US:en",
		}).
		Get(googleNewsFeedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch google news: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch google news: status %d", resp.StatusCode())
	}

	return parseNewsFeed(resp.Body(), target, limit)
}

func parseNewsFeed(body []byte, target Target, limit int) ([]stream.MentionEvent, error) {
	var feed struct {
		Channel struct {
			Items []struct {
				Title   string `xml:"title"`
				Link    string `xml:"link"`
				PubDate string `xml:"pubDate"`
			} `xml:"item"`
		} `xml:"channel"`
	}
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("decode news feed: %w", err)
	}

	events := make([]stream.MentionEvent, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		if len(events) >= limit {
			break
		}

		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}

		event := stream.MentionEvent{
			Source:    "google_news",
			Title:     title,
			URL:       link,
			BrandID:   target.BrandID,
			BrandName: target.BrandName,
		}
		if published := parseFeedDate(item.PubDate); published != nil {
			event.PublishedAt = published
		}
		events = append(events, event)
	}
	return events, nil
}

func parseFeedDate(raw string) *time.Time {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822} {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}
	return nil
}
