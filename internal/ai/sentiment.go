package ai

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

const sentimentContentLimit = 1500

// Sentiment is the model's judgement of a mention.
type Sentiment struct {
	Label  string
	Score  float64
	Reason string
}

// NeutralSentiment is the degradation value used when inference fails.
func NeutralSentiment() Sentiment {
	return Sentiment{Label: "Neutral", Score: 0.0, Reason: "analysis unavailable"}
}

// AnalyzeSentiment asks the chat model to rate a mention of the brand.
// The response contract is three fixed headers; anything the parser cannot
// read falls back to neutral values rather than failing the mention.
func (c *Client) AnalyzeSentiment(ctx context.Context, brand, title, content string) (Sentiment, error) {
	if c == nil || c.chat == nil {
		return NeutralSentiment(), fmt.Errorf("ai client is not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	prompt := buildSentimentPrompt(brand, title, truncateRunes(content, sentimentContentLimit))

	response, err := llms.GenerateFromSinglePrompt(ctx, c.chat, prompt, llms.WithTemperature(0.0))
	if err != nil {
		return NeutralSentiment(), fmt.Errorf("generate sentiment: %w", err)
	}

	return parseSentimentResponse(response), nil
}

func buildSentimentPrompt(brand, title, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the sentiment of this text toward the brand %q.\n\n", brand)
	fmt.Fprintf(&b, "Title: %s\n", title)
	fmt.Fprintf(&b, "Content: %s\n\n", content)
	b.WriteString("Respond in exactly this format:\n")
	b.WriteString("Sentiment: <Positive, Neutral, or Negative>\n")
	b.WriteString("Score: <number between -1.0 and 1.0>\n")
	b.WriteString("Reason: <one short sentence>\n")
	return b.String()
}

// parseSentimentResponse reads the fixed-header reply line by line. Unknown
// labels normalize to Neutral and scores clamp to [-1.0, 1.0].
func parseSentimentResponse(response string) Sentiment {
	result := Sentiment{Label: "Neutral", Score: 0.0}

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case hasHeaderPrefix(line, "Sentiment:"):
			result.Label = normalizeSentimentLabel(headerValue(line, "Sentiment:"))
		case hasHeaderPrefix(line, "Score:"):
			result.Score = clampScore(headerValue(line, "Score:"))
		case hasHeaderPrefix(line, "Reason:"):
			result.Reason = headerValue(line, "Reason:")
		}
	}
	return result
}

func hasHeaderPrefix(line, header string) bool {
	return len(line) >= len(header) && strings.EqualFold(line[:len(header)], header)
}

func headerValue(line, header string) string {
	return strings.TrimSpace(line[len(header):])
}

func normalizeSentimentLabel(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive":
		return "Positive"
	case "negative":
		return "Negative"
	default:
		return "Neutral"
	}
}

func clampScore(raw string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0.0
	}
	if value > 1.0 {
		return 1.0
	}
	if value < -1.0 {
		return -1.0
	}
	return value
}
