package db

import (
	"math"
	"strings"
	"testing"
)

func TestToVectorLiteral(t *testing.T) {
	t.Parallel()

	vector := make([]float32, EmbeddingDimensions)
	vector[0] = 0.5
	vector[1] = -1.25
	vector[EmbeddingDimensions-1] = 2

	literal, err := ToVectorLiteral(vector)
	if err != nil {
		t.Fatalf("ToVectorLiteral returned error: %v", err)
	}

	if !strings.HasPrefix(literal, "[0.5,-1.25,") {
		t.Fatalf("unexpected literal prefix: %s", literal[:24])
	}
	if !strings.HasSuffix(literal, ",2]") {
		t.Fatalf("unexpected literal suffix: %s", literal[len(literal)-8:])
	}
	if got := strings.Count(literal, ","); got != EmbeddingDimensions-1 {
		t.Fatalf("expected %d separators, got %d", EmbeddingDimensions-1, got)
	}
}

func TestToVectorLiteralRejectsWrongWidth(t *testing.T) {
	t.Parallel()

	if _, err := ToVectorLiteral(make([]float32, 3)); err == nil {
		t.Fatalf("expected error for wrong dimension count")
	}
	if _, err := ToVectorLiteral(nil); err == nil {
		t.Fatalf("expected error for nil vector")
	}
}

func TestToVectorLiteralRejectsNonFinite(t *testing.T) {
	t.Parallel()

	vector := make([]float32, EmbeddingDimensions)
	vector[17] = float32(math.NaN())
	if _, err := ToVectorLiteral(vector); err == nil {
		t.Fatalf("expected error for NaN component")
	}

	vector[17] = float32(math.Inf(1))
	if _, err := ToVectorLiteral(vector); err == nil {
		t.Fatalf("expected error for Inf component")
	}
}
