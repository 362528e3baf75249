package payloadschema

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValidateMentionPayload_Valid(t *testing.T) {
	payload := json.RawMessage(`{
		"source":"hackernews",
		"title":"Acme launches new developer platform",
		"url":"https://example.com/acme-launch",
		"brand_name":"Acme",
		"content_snippet":"Acme announced a new platform today.",
		"published_at":"2026-03-01T12:00:00Z",
		"author":"jdoe",
		"points":42
	}`)

	item, err := ValidateMentionPayload(payload)
	if err != nil {
		t.Fatalf("ValidateMentionPayload returned error: %v", err)
	}
	if item.Source != "hackernews" || item.BrandName != "Acme" {
		t.Fatalf("unexpected payload: %+v", item)
	}
	if item.Points == nil || *item.Points != 42 {
		t.Fatalf("points = %v", item.Points)
	}
}

func TestValidateMentionPayload_MissingRequired(t *testing.T) {
	payload := json.RawMessage(`{
		"source":"hackernews",
		"title":"missing url and brand"
	}`)

	if _, err := ValidateMentionPayload(payload); err == nil {
		t.Fatalf("expected schema validation error for missing required fields")
	}
}

func TestValidateMentionPayload_UnknownField(t *testing.T) {
	payload := json.RawMessage(`{
		"source":"hackernews",
		"title":"Acme",
		"url":"https://example.com/x",
		"brand_name":"Acme",
		"extra_field":true
	}`)

	if _, err := ValidateMentionPayload(payload); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestValidateMentionPayload_BlankTitle(t *testing.T) {
	payload := json.RawMessage(`{
		"source":"hackernews",
		"title":"   ",
		"url":"https://example.com/x",
		"brand_name":"Acme"
	}`)

	if _, err := ValidateMentionPayload(payload); err == nil {
		t.Fatalf("expected semantic error for blank title")
	}
}

func TestValidateMentionPayload_BadPublishedAt(t *testing.T) {
	payload := json.RawMessage(`{
		"source":"hackernews",
		"title":"Acme",
		"url":"https://example.com/x",
		"brand_name":"Acme",
		"published_at":"March 1st 2026"
	}`)

	if _, err := ValidateMentionPayload(payload); err == nil {
		t.Fatalf("expected error for non RFC3339 published_at")
	}
}

func TestValidateMentionPayload_TrailingContent(t *testing.T) {
	payload := json.RawMessage(`{"source":"x","title":"y","url":"https://example.com","brand_name":"z"} {"again":true}`)

	_, err := ValidateMentionPayload(payload)
	if err == nil || !strings.Contains(err.Error(), "trailing") {
		t.Fatalf("expected trailing content error, got %v", err)
	}
}

func TestValidateMentionPayload_Empty(t *testing.T) {
	if _, err := ValidateMentionPayload(json.RawMessage("  ")); err == nil {
		t.Fatalf("expected error for empty payload")
	}
}

func TestMentionPayload_ToEvent(t *testing.T) {
	published := "2026-03-01T12:00:00Z"
	snippet := "Acme announced a new platform."
	item := MentionPayload{
		Source:         " hackernews ",
		Title:          " Acme launches ",
		URL:            " https://example.com/launch ",
		BrandName:      " Acme ",
		ContentSnippet: &snippet,
		PublishedAt:    &published,
	}

	event := item.ToEvent()
	if event.Source != "hackernews" || event.Title != "Acme launches" || event.BrandName != "Acme" {
		t.Fatalf("identity fields should be trimmed: %+v", event)
	}
	if event.PublishedAt == nil || event.PublishedAt.UTC().Format("2006-01-02") != "2026-03-01" {
		t.Fatalf("published_at = %v", event.PublishedAt)
	}
	if err := event.Validate(); err != nil {
		t.Fatalf("converted event must be valid: %v", err)
	}
}
