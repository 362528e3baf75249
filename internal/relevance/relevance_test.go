package relevance

import (
	"strings"
	"testing"
)

func TestScoreFullMatch(t *testing.T) {
	t.Parallel()

	title := "Acme launches its new developer platform"
	content := strings.Repeat("Acme is mentioned here. ", 5)

	if got := Score(title, content, "Acme"); got != 100 {
		t.Fatalf("Score = %d, want 100", got)
	}
}

func TestScoreImplausibleTitleStaysBelowThreshold(t *testing.T) {
	t.Parallel()

	got := Score("ok", "some text that never names the brand, plus one acme here and one acme there", "Acme")
	if got > 20 {
		t.Fatalf("Score = %d, want <= 20", got)
	}
	if got >= AdmissionThreshold {
		t.Fatalf("Score = %d must stay below admission threshold %d", got, AdmissionThreshold)
	}
}

func TestScoreCapsContentOccurrences(t *testing.T) {
	t.Parallel()

	content := strings.Repeat("acme ", 50)
	withFour := Score("A headline about something else entirely", strings.Repeat("acme ", 4), "acme")
	withFifty := Score("A headline about something else entirely", content, "acme")

	if withFour != withFifty {
		t.Fatalf("occurrence score must cap at 4: got %d vs %d", withFour, withFifty)
	}
}

func TestScoreCaseInsensitive(t *testing.T) {
	t.Parallel()

	lower := Score("acme does a thing worth reading", "acme acme", "acme")
	upper := Score("ACME Does A Thing Worth Reading", "ACME ACME", "Acme")
	if lower != upper {
		t.Fatalf("case must not affect score: %d vs %d", lower, upper)
	}
}

func TestTitleSimilarityIdentical(t *testing.T) {
	t.Parallel()

	if got := TitleSimilarity("Acme ships v2", "acme ships v2"); got != 1.0 {
		t.Fatalf("identical titles similarity = %f, want 1.0", got)
	}
}

func TestTitleSimilarityDisjoint(t *testing.T) {
	t.Parallel()

	got := TitleSimilarity("Acme ships v2 today", "Completely unrelated gardening tips")
	if got > 0.5 {
		t.Fatalf("unrelated titles similarity = %f, want low", got)
	}
}

func TestIsNearDuplicate(t *testing.T) {
	t.Parallel()

	recent := []string{
		"Acme launches new developer platform",
		"Weather forecast for the weekend",
	}

	best, dup := IsNearDuplicate("Acme launches new developer platform!", recent, NearDuplicateThreshold)
	if !dup {
		t.Fatalf("one-character variant should be a near duplicate, best=%f", best)
	}

	best, dup = IsNearDuplicate("Acme quarterly earnings beat estimates", recent, NearDuplicateThreshold)
	if dup {
		t.Fatalf("distinct headline flagged as duplicate, best=%f", best)
	}
}

func TestIsNearDuplicateEmptyWindow(t *testing.T) {
	t.Parallel()

	best, dup := IsNearDuplicate("Anything at all", nil, NearDuplicateThreshold)
	if dup || best != 0 {
		t.Fatalf("empty window must never flag, best=%f dup=%v", best, dup)
	}
}
