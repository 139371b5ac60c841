package services

import (
	"strings"
	"unicode"
)

// FallbackLanguage is used when no detection rule matches.
const FallbackLanguage = "en"

// languageRule is one (diacritics, common words, code) triple. Rules are
// evaluated in order; the first match wins, so the slice order is the
// tie-break priority.
type languageRule struct {
	code       string
	diacritics string
	words      []string
}

var languageRules = []languageRule{
	{
		code:       "pl",
		diacritics: "ąćęłńóśźż",
		// Only words that are not also common words of another supported
		// language. "to" and "co" are Polish closed-class words but "to"
		// is ubiquitous in English and "co" shows up in English tokens,
		// so they cannot serve as evidence.
		words: []string{"jak", "czy", "ile", "nie", "jest", "się", "dzień", "cześć"},
	},
	{
		code:       "de",
		diacritics: "äöüß",
		words:      []string{"und", "ist", "nicht", "der", "die", "das", "wie"},
	},
}

// DetectLanguage classifies text as one of the supported language codes.
// Total function: always returns a code, never fails. Called once per
// conversation, against the first user message.
func DetectLanguage(text string) string {
	lower := strings.ToLower(text)

	for _, rule := range languageRules {
		if strings.ContainsAny(lower, rule.diacritics) {
			return rule.code
		}
	}

	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, rule := range languageRules {
		for _, w := range words {
			for _, common := range rule.words {
				if w == common {
					return rule.code
				}
			}
		}
	}

	return FallbackLanguage
}

// LanguageName maps a detected code to the English name used in the
// system directive. Unknown codes fall back to English.
func LanguageName(code string) string {
	switch code {
	case "pl":
		return "Polish"
	case "de":
		return "German"
	default:
		return "English"
	}
}
