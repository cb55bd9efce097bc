// Package langdetect reports the dominant language of a document. The result is used
// for run statistics only and never filters documents.
package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"

	"horse.fit/stallednews/internal/textnorm"
)

const (
	minLetters  = 20
	sampleRunes = 2000
)

// Languages covers the regulator and press corpora this tool is pointed at.
var Languages = []lingua.Language{
	lingua.English,
	lingua.Hindi,
	lingua.Marathi,
	lingua.Bengali,
	lingua.Tamil,
	lingua.Telugu,
	lingua.Gujarati,
	lingua.Punjabi,
	lingua.Urdu,
}

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// DetectISO6391 returns the two-letter code of the most likely language in the head of
// text, or "" when the sample is too short or no language is confident.
func DetectISO6391(text string) string {
	sample := strings.TrimSpace(textnorm.Head(text, sampleRunes))
	if sample == "" {
		return ""
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < minLetters {
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
			FromLanguages(Languages...).
			Build()
	})
	return detector
}
