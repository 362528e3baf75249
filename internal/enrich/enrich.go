package enrich

import (
	"math"
	"net/url"
	"strings"
	"time"

	"horse.fit/mentions/internal/stream"
)

const wordsPerMinute = 200

// Domain extracts the registrable host of a URL with any leading "www."
// stripped. Unparseable URLs yield "".
func Domain(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// ContentStats counts whitespace-separated words and runes.
func ContentStats(content string) (words, chars int) {
	return len(strings.Fields(content)), len([]rune(content))
}

// ReadingTime estimates minutes at 200 words per minute, never below 1.
func ReadingTime(wordCount int) int {
	minutes := int(math.Round(float64(wordCount) / wordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// QualityScore rates completeness on a 0-100 scale: up to 50 points for
// content length (1 point per 20 runes), 20 for a title, 15 for an author,
// 15 for a publication date.
func QualityScore(event stream.MentionEvent) int {
	score := min(50, len([]rune(event.ContentSnippet))/20)
	if strings.TrimSpace(event.Title) != "" {
		score += 20
	}
	if strings.TrimSpace(event.Author) != "" {
		score += 15
	}
	if event.PublishedAt != nil {
		score += 15
	}
	return min(100, score)
}

// Annotate fills in the derived metadata fields and stamps the event as
// enriched. Events already carrying the stamp are returned unchanged.
func Annotate(event stream.MentionEvent) stream.MentionEvent {
	if event.EnrichedAt != nil {
		return event
	}

	words, chars := ContentStats(event.ContentSnippet)
	reading := ReadingTime(words)
	quality := QualityScore(event)

	event.Domain = Domain(event.URL)
	event.WordCount = &words
	event.CharCount = &chars
	event.ReadingTime = &reading
	event.QualityScore = &quality
	event.Language = DetectISO6391(event.Title + " " + event.ContentSnippet)

	now := time.Now().UTC()
	event.EnrichedAt = &now
	return event
}
