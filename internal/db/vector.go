package db

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EmbeddingDimensions is the width of the pgvector column.
const EmbeddingDimensions = 768

// ToVectorLiteral renders an embedding as the pgvector input literal
// "[f1,f2,...]". The vector must match the column width exactly and contain
// only finite values.
func ToVectorLiteral(vector []float32) (string, error) {
	if len(vector) != EmbeddingDimensions {
		return "", fmt.Errorf("embedding has %d dimensions, expected %d", len(vector), EmbeddingDimensions)
	}

	var b strings.Builder
	b.Grow(len(vector) * 10)
	b.WriteByte('[')
	for i, value := range vector {
		f := float64(value)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", fmt.Errorf("embedding component %d is not finite", i)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(f, 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String(), nil
}
