// Package langdetect guesses the source language of a selection.
// The result is a hint for history and logs; providers always auto-detect.
package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// Languages the statistical detector chooses between.
var languages = []lingua.Language{
	lingua.Arabic,
	lingua.Chinese,
	lingua.Dutch,
	lingua.English,
	lingua.French,
	lingua.German,
	lingua.Italian,
	lingua.Japanese,
	lingua.Korean,
	lingua.Polish,
	lingua.Portuguese,
	lingua.Russian,
	lingua.Spanish,
	lingua.Turkish,
	lingua.Ukrainian,
}

const (
	minLetters = 6
	maxSample  = 1000 // runes
)

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// Hint returns an ISO 639-1 code for text, or "" when unsure.
func Hint(text string) string {
	sample := truncate(strings.TrimSpace(text), maxSample)
	if sample == "" {
		return ""
	}

	if code := byScript(sample); code != "" {
		return code
	}

	letters := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < minLetters {
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

// byScript settles scripts used by a single language: kana means Japanese
// even when mixed with Han, Hangul means Korean, Han alone means Chinese.
func byScript(s string) string {
	var han, kana, hangul bool
	for _, r := range s {
		switch {
		case unicode.In(r, unicode.Hiragana, unicode.Katakana):
			kana = true
		case unicode.Is(unicode.Hangul, r):
			hangul = true
		case unicode.Is(unicode.Han, r):
			han = true
		}
	}
	switch {
	case kana:
		return "ja"
	case hangul:
		return "ko"
	case han:
		return "zh"
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(languages...).
			Build()
	})
	return detector
}
