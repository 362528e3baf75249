package relevance

import "strings"

// NearDuplicateThreshold is the normalized similarity above which two titles
// are treated as the same story.
const NearDuplicateThreshold = 0.85

// RecentTitleWindow is how many recently persisted titles per brand the
// near-duplicate check compares against.
const RecentTitleWindow = 100

// TitleSimilarity computes normalized edit-distance similarity between two
// titles in [0, 1], case-insensitive. Identical titles score 1.0.
func TitleSimilarity(a, b string) float64 {
	left := strings.ToLower(strings.TrimSpace(a))
	right := strings.ToLower(strings.TrimSpace(b))
	if left == right {
		return 1.0
	}
	if left == "" || right == "" {
		return 0.0
	}

	leftRunes := []rune(left)
	rightRunes := []rune(right)
	longest := len(leftRunes)
	if len(rightRunes) > longest {
		longest = len(rightRunes)
	}

	distance := levenshtein(leftRunes, rightRunes)
	return 1.0 - float64(distance)/float64(longest)
}

// IsNearDuplicate reports the best similarity between the title and any of
// the recent titles, and whether it crosses the threshold.
func IsNearDuplicate(title string, recent []string, threshold float64) (float64, bool) {
	if threshold <= 0 {
		threshold = NearDuplicateThreshold
	}

	best := 0.0
	for _, candidate := range recent {
		if similarity := TitleSimilarity(title, candidate); similarity > best {
			best = similarity
		}
	}
	return best, best > threshold
}

func levenshtein(a, b []rune) int {
	previous := make([]int, len(b)+1)
	current := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		previous[j] = j
	}

	for i := 1; i <= len(a); i++ {
		current[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			current[j] = min(previous[j]+1, min(current[j-1]+1, previous[j-1]+cost))
		}
		previous, current = current, previous
	}
	return previous[len(b)]
}
