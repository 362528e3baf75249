package fetch

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultTimeout = 12 * time.Second

	bodyByteLimit    = 2 * 1024 * 1024
	defaultUserAgent = "mentions-pipeline/1.0"
)

// Fetcher retrieves pages and extracts their readable text. The processor
// uses it when an event's snippet is too short to analyze.
type Fetcher struct {
	http *resty.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", defaultUserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.8")

	return &Fetcher{http: httpClient}
}

// Fetch downloads the page and reduces it to readable text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	page := strings.TrimSpace(rawURL)
	if page == "" {
		return "", fmt.Errorf("url is required")
	}

	pageURL, err := url.Parse(page)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	resp, err := f.http.R().SetContext(ctx).Get(page)
	if err != nil {
		return "", fmt.Errorf("fetch url: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("fetch status %d", resp.StatusCode())
	}

	body := resp.Body()
	if len(body) > bodyByteLimit {
		body = body[:bodyByteLimit]
	}

	contentType := strings.ToLower(strings.TrimSpace(resp.Header().Get("Content-Type")))
	if strings.HasPrefix(contentType, "text/plain") {
		return CleanText(string(body)), nil
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability parse: %w", err)
	}

	var renderedText bytes.Buffer
	if err := article.RenderText(&renderedText); err != nil {
		return "", fmt.Errorf("render readability text: %w", err)
	}

	text := CleanText(renderedText.String())
	if text == "" {
		text = CleanText(article.Excerpt())
	}
	if text == "" {
		return "", fmt.Errorf("extracted empty content")
	}
	return text, nil
}

// CleanText normalizes line endings and collapses extra in-line whitespace.
func CleanText(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		clean := strings.Join(strings.Fields(strings.TrimSpace(line)), " ")
		if clean == "" {
			continue
		}
		paragraphs = append(paragraphs, clean)
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}
