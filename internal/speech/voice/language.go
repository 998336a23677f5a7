package voice

import "strings"

// LanguageMode selects how the target language of an utterance is chosen.
type LanguageMode string

const (
	LanguageEnglish LanguageMode = "en"
	LanguageHindi   LanguageMode = "hi"
	LanguageAuto    LanguageMode = "auto"
)

const (
	TagHindi         = "hi-IN"
	TagEnglishUS     = "en-US"
	TagEnglishIndian = "en-IN"
)

// ResolveLanguage returns the language tag to speak text in. Auto mode picks
// Hindi when the text contains Devanagari and Indian English otherwise; any
// mode other than hi or auto means US English.
func ResolveLanguage(text string, mode LanguageMode) string {
	switch mode {
	case LanguageAuto:
		if ContainsDevanagari(text) {
			return TagHindi
		}
		return TagEnglishIndian
	case LanguageHindi:
		return TagHindi
	default:
		return TagEnglishUS
	}
}

// ContainsDevanagari reports whether text has a rune in U+0900–U+097F.
func ContainsDevanagari(text string) bool {
	for _, r := range text {
		if r >= 0x0900 && r <= 0x097F {
			return true
		}
	}
	return false
}

// PrimarySubtag returns the part of tag before the first '-'.
func PrimarySubtag(tag string) string {
	primary, _, _ := strings.Cut(tag, "-")
	return primary
}
