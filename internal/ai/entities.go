package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

const (
	entityContentLimit  = 1000
	maxEntitiesPerGroup = 10
)

// EntityCategories are the groups the extractor is allowed to return.
var EntityCategories = []string{"people", "organizations", "locations", "products", "technologies"}

// ExtractEntities pulls named entities from a mention, grouped into the five
// known categories. Unknown categories in the reply are discarded.
func (c *Client) ExtractEntities(ctx context.Context, title, content string) (map[string][]string, error) {
	if c == nil || c.chat == nil {
		return nil, fmt.Errorf("ai client is not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	prompt := buildEntityPrompt(title, truncateRunes(content, entityContentLimit))

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}

	response, err := c.chat.GenerateContent(ctx, messages, llms.WithTemperature(0.0), llms.WithJSONMode())
	if err != nil {
		return nil, fmt.Errorf("generate entities: %w", err)
	}
	if len(response.Choices) == 0 {
		return emptyEntities(), nil
	}

	entities, err := parseEntityResponse(response.Choices[0].Content)
	if err != nil {
		return nil, fmt.Errorf("parse entity response: %w", err)
	}
	return entities, nil
}

func buildEntityPrompt(title, content string) string {
	var b strings.Builder
	b.WriteString("Extract named entities from this text. Respond with a single JSON object ")
	b.WriteString(`with exactly these keys: "people", "organizations", "locations", "products", "technologies". `)
	b.WriteString("Each value is an array of strings. Use empty arrays for categories with no entities.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", title)
	fmt.Fprintf(&b, "Content: %s\n", content)
	return b.String()
}

// parseEntityResponse decodes the model reply, tolerating markdown code
// fences around the JSON body.
func parseEntityResponse(response string) (map[string][]string, error) {
	text := strings.TrimSpace(response)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var raw map[string][]string
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, err
	}

	entities := emptyEntities()
	for _, category := range EntityCategories {
		seen := make(map[string]struct{})
		for _, value := range raw[category] {
			name := strings.TrimSpace(value)
			if name == "" {
				continue
			}
			if _, dup := seen[strings.ToLower(name)]; dup {
				continue
			}
			seen[strings.ToLower(name)] = struct{}{}
			entities[category] = append(entities[category], name)
			if len(entities[category]) >= maxEntitiesPerGroup {
				break
			}
		}
	}
	return entities, nil
}

func emptyEntities() map[string][]string {
	entities := make(map[string][]string, len(EntityCategories))
	for _, category := range EntityCategories {
		entities[category] = []string{}
	}
	return entities
}
