package stream

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrMalformedEvent = errors.New("malformed mention event")

// MentionEvent is the typed form of a pipeline event. On the wire every field
// is a flat string entry; absent optional values travel as explicit empty
// strings so consumers never see a missing key.
type MentionEvent struct {
	Source         string
	Title          string
	URL            string
	ContentSnippet string
	Author         string
	BrandID        int64
	BrandName      string
	Points         *int
	PublishedAt    *time.Time
	IngestedAt     *time.Time

	// Annotations added by pipeline stages.
	ContentHash  string
	Domain       string
	Language     string
	WordCount    *int
	CharCount    *int
	ReadingTime  *int
	QualityScore *int
	EnrichedAt   *time.Time
}

// Encode flattens the event into the wire representation. Every key is always
// present; optional fields encode as "".
func (e MentionEvent) Encode() map[string]string {
	return map[string]string{
		"source":          e.Source,
		"title":           e.Title,
		"url":             e.URL,
		"content_snippet": e.ContentSnippet,
		"author":          e.Author,
		"brand_id":        encodeInt64(e.BrandID),
		"brand_name":      e.BrandName,
		"points":          encodeOptionalInt(e.Points),
		"published_at":    encodeOptionalTime(e.PublishedAt),
		"ingested_at":     encodeOptionalTime(e.IngestedAt),
		"content_hash":    e.ContentHash,
		"domain":          e.Domain,
		"language":        e.Language,
		"word_count":      encodeOptionalInt(e.WordCount),
		"char_count":      encodeOptionalInt(e.CharCount),
		"reading_time":    encodeOptionalInt(e.ReadingTime),
		"quality_score":   encodeOptionalInt(e.QualityScore),
		"enriched_at":     encodeOptionalTime(e.EnrichedAt),
	}
}

// DecodeEvent parses the wire representation back into a typed event.
// Unparseable optional numerics and timestamps decode to nil rather than
// failing the whole event; missing required identity fields return
// ErrMalformedEvent.
func DecodeEvent(values map[string]string) (MentionEvent, error) {
	event := MentionEvent{
		Source:         strings.TrimSpace(values["source"]),
		Title:          strings.TrimSpace(values["title"]),
		URL:            strings.TrimSpace(values["url"]),
		ContentSnippet: values["content_snippet"],
		Author:         strings.TrimSpace(values["author"]),
		BrandName:      strings.TrimSpace(values["brand_name"]),
		ContentHash:    strings.TrimSpace(values["content_hash"]),
		Domain:         strings.TrimSpace(values["domain"]),
		Language:       strings.TrimSpace(values["language"]),
		Points:         decodeOptionalInt(values["points"]),
		WordCount:      decodeOptionalInt(values["word_count"]),
		CharCount:      decodeOptionalInt(values["char_count"]),
		ReadingTime:    decodeOptionalInt(values["reading_time"]),
		QualityScore:   decodeOptionalInt(values["quality_score"]),
		PublishedAt:    decodeOptionalTime(values["published_at"]),
		IngestedAt:     decodeOptionalTime(values["ingested_at"]),
		EnrichedAt:     decodeOptionalTime(values["enriched_at"]),
	}

	if raw := strings.TrimSpace(values["brand_id"]); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			event.BrandID = id
		}
	}

	if err := event.Validate(); err != nil {
		return MentionEvent{}, err
	}
	return event, nil
}

// Validate checks the identity fields every pipeline stage depends on.
func (e MentionEvent) Validate() error {
	var missing []string
	if strings.TrimSpace(e.Source) == "" {
		missing = append(missing, "source")
	}
	if strings.TrimSpace(e.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(e.URL) == "" {
		missing = append(missing, "url")
	}
	if strings.TrimSpace(e.BrandName) == "" {
		missing = append(missing, "brand_name")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMalformedEvent, strings.Join(missing, ", "))
	}
	return nil
}

func encodeInt64(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

func encodeOptionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func encodeOptionalTime(v *time.Time) string {
	if v == nil || v.IsZero() {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}

func decodeOptionalInt(raw string) *int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil
	}
	return &value
}

func decodeOptionalTime(raw string) *time.Time {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil
	}
	utc := parsed.UTC()
	return &utc
}
