package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"horse.fit/mentions/internal/stream"
)

//go:embed mention.schema.json
var mentionSchemaJSON string

// MentionPayload is the external ingestion shape accepted by the API.
type MentionPayload struct {
	Source         string  `json:"source"`
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	BrandName      string  `json:"brand_name"`
	BrandID        *int64  `json:"brand_id,omitempty"`
	ContentSnippet *string `json:"content_snippet,omitempty"`
	PublishedAt    *string `json:"published_at,omitempty"`
	Author         *string `json:"author,omitempty"`
	Points         *int    `json:"points,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateMentionPayload checks a raw payload against the schema plus the
// semantic rules the schema cannot express, and returns the typed payload.
func ValidateMentionPayload(payload json.RawMessage) (*MentionPayload, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var item MentionPayload
	if err := json.Unmarshal(normalized, &item); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&item); err != nil {
		return nil, err
	}

	return &item, nil
}

// ToEvent converts a validated payload into a pipeline event.
func (p *MentionPayload) ToEvent() stream.MentionEvent {
	event := stream.MentionEvent{
		Source:    strings.TrimSpace(p.Source),
		Title:     strings.TrimSpace(p.Title),
		URL:       strings.TrimSpace(p.URL),
		BrandName: strings.TrimSpace(p.BrandName),
		Points:    p.Points,
	}
	if p.BrandID != nil {
		event.BrandID = *p.BrandID
	}
	if p.ContentSnippet != nil {
		event.ContentSnippet = *p.ContentSnippet
	}
	if p.Author != nil {
		event.Author = strings.TrimSpace(*p.Author)
	}
	if p.PublishedAt != nil {
		if parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(*p.PublishedAt)); err == nil {
			utc := parsed.UTC()
			event.PublishedAt = &utc
		}
	}
	return event
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("mention.schema.json", strings.NewReader(mentionSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("mention.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(item *MentionPayload) error {
	if item == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(item.Source) == "" {
		return fmt.Errorf("source must not be empty")
	}
	if strings.TrimSpace(item.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}
	if strings.TrimSpace(item.BrandName) == "" {
		return fmt.Errorf("brand_name must not be empty")
	}

	trimmedURL := strings.TrimSpace(item.URL)
	if trimmedURL == "" {
		return fmt.Errorf("url must not be empty")
	}
	if _, err := url.ParseRequestURI(trimmedURL); err != nil {
		return fmt.Errorf("url is not a valid URI: %w", err)
	}

	if item.PublishedAt != nil {
		if _, err := time.Parse(time.RFC3339, strings.TrimSpace(*item.PublishedAt)); err != nil {
			return fmt.Errorf("published_at must be RFC3339: %w", err)
		}
	}

	return nil
}
