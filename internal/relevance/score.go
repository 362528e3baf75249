package relevance

import "strings"

// AdmissionThreshold is the minimum score a mention needs to continue
// through the pipeline.
const AdmissionThreshold = 50

// Score rates how likely an event is a genuine mention of the brand on a
// 0-100 scale: 40 points for the brand appearing in the title, 10 per
// content occurrence capped at 40, and up to 20 for a plausible title length.
func Score(title, content, brand string) int {
	needle := strings.ToLower(strings.TrimSpace(brand))
	if needle == "" {
		return 0
	}

	score := 0
	if strings.Contains(strings.ToLower(title), needle) {
		score += 40
	}

	occurrences := strings.Count(strings.ToLower(content), needle)
	if occurrences > 4 {
		occurrences = 4
	}
	score += occurrences * 10

	score += titleLengthScore(len([]rune(strings.TrimSpace(title))))
	return score
}

// titleLengthScore rewards headline-shaped titles. Very short strings like
// "ok" and extremely long blobs score zero.
func titleLengthScore(runes int) int {
	switch {
	case runes >= 20 && runes <= 120:
		return 20
	case runes >= 10 && runes < 20:
		return 10
	case runes > 120 && runes <= 200:
		return 10
	default:
		return 0
	}
}
