package enrich

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// DetectISO6391 annotates mention text with a two-letter language code.
// Samples too short to classify reliably yield "".
func DetectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return ""
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < 6 {
		return ""
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(
				lingua.English,
				lingua.Spanish,
				lingua.French,
				lingua.German,
				lingua.Portuguese,
				lingua.Italian,
				lingua.Dutch,
				lingua.Japanese,
				lingua.Chinese,
				lingua.Korean,
				lingua.Russian,
			).
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}
