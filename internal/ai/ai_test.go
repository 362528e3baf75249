package ai

import (
	"strings"
	"testing"
)

func TestParseSentimentResponse(t *testing.T) {
	t.Parallel()

	response := "Sentiment: Positive\nScore: 0.8\nReason: The article praises the launch."
	got := parseSentimentResponse(response)

	if got.Label != "Positive" {
		t.Fatalf("label = %q, want Positive", got.Label)
	}
	if got.Score != 0.8 {
		t.Fatalf("score = %f, want 0.8", got.Score)
	}
	if got.Reason != "The article praises the launch." {
		t.Fatalf("reason = %q", got.Reason)
	}
}

func TestParseSentimentResponseClampsScore(t *testing.T) {
	t.Parallel()

	if got := parseSentimentResponse("Sentiment: Negative\nScore: -3.5\nReason: bad"); got.Score != -1.0 {
		t.Fatalf("score = %f, want -1.0", got.Score)
	}
	if got := parseSentimentResponse("Sentiment: Positive\nScore: 12\nReason: good"); got.Score != 1.0 {
		t.Fatalf("score = %f, want 1.0", got.Score)
	}
}

func TestParseSentimentResponseDefaultsToNeutral(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"I think this is mostly fine.",
		"Sentiment: enthusiastic\nScore: maybe\nReason:",
	}

	for _, response := range cases {
		got := parseSentimentResponse(response)
		if got.Label != "Neutral" {
			t.Fatalf("response %q: label = %q, want Neutral", response, got.Label)
		}
		if got.Score != 0.0 {
			t.Fatalf("response %q: score = %f, want 0", response, got.Score)
		}
	}
}

func TestParseSentimentResponseCaseInsensitiveHeaders(t *testing.T) {
	t.Parallel()

	got := parseSentimentResponse("sentiment: negative\nscore: -0.4\nreason: complaint thread")
	if got.Label != "Negative" || got.Score != -0.4 {
		t.Fatalf("got %+v", got)
	}
}

func TestParseEntityResponseStripsCodeFences(t *testing.T) {
	t.Parallel()

	response := "```json\n{\"people\":[\"Jane Doe\"],\"organizations\":[\"Acme\"],\"locations\":[],\"products\":[\"Acme Cloud\"],\"technologies\":[\"Kubernetes\"]}\n```"
	entities, err := parseEntityResponse(response)
	if err != nil {
		t.Fatalf("parseEntityResponse returned error: %v", err)
	}

	if len(entities["people"]) != 1 || entities["people"][0] != "Jane Doe" {
		t.Fatalf("people = %v", entities["people"])
	}
	if len(entities["locations"]) != 0 {
		t.Fatalf("locations should be empty, got %v", entities["locations"])
	}
}

func TestParseEntityResponseDropsUnknownCategoriesAndDupes(t *testing.T) {
	t.Parallel()

	response := `{"people":["Jane","jane"," "],"animals":["capuchin"],"organizations":["Acme"],"locations":[],"products":[],"technologies":[]}`
	entities, err := parseEntityResponse(response)
	if err != nil {
		t.Fatalf("parseEntityResponse returned error: %v", err)
	}

	if _, exists := entities["animals"]; exists {
		t.Fatalf("unknown category must be dropped")
	}
	if len(entities["people"]) != 1 {
		t.Fatalf("people = %v, want deduplicated single entry", entities["people"])
	}
	for _, category := range EntityCategories {
		if _, exists := entities[category]; !exists {
			t.Fatalf("category %q missing from result", category)
		}
	}
}

func TestParseEntityResponseRejectsNonJSON(t *testing.T) {
	t.Parallel()

	if _, err := parseEntityResponse("the entities are Jane and Acme"); err == nil {
		t.Fatalf("expected error for non-JSON reply")
	}
}

func TestPrepareEmbeddingInput(t *testing.T) {
	t.Parallel()

	got := PrepareEmbeddingInput("  A title  ", "Body text.")
	if got != "A title\n\nBody text." {
		t.Fatalf("got %q", got)
	}

	long := PrepareEmbeddingInput("t", strings.Repeat("x", 5000))
	if len([]rune(long)) != 1000 {
		t.Fatalf("long input must clip to 1000 runes, got %d", len([]rune(long)))
	}

	if got := PrepareEmbeddingInput("  ", ""); got != "" {
		t.Fatalf("blank input should produce empty string, got %q", got)
	}
}
