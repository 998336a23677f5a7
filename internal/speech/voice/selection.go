package voice

import (
	"strings"

	"studentdesk/internal/speech/tts"
)

// qualityMarker in a voice name marks a high quality voice.
const qualityMarker = "Google"

// rule is one step of a priority-ordered voice search.
type rule struct {
	name  string
	match func(tts.Voice) bool
}

// firstMatch walks rules in order and returns the first catalogue entry the
// first matching rule accepts, along with that rule's name.
func firstMatch(catalog []tts.Voice, rules []rule) (tts.Voice, string, bool) {
	for _, r := range rules {
		for _, v := range catalog {
			if r.match(v) {
				return v, r.name, true
			}
		}
	}
	return tts.Voice{}, "", false
}

func isQuality(v tts.Voice) bool {
	return strings.Contains(v.Name, qualityMarker)
}

func isIndian(v tts.Voice) bool {
	return v.LanguageTag == TagEnglishIndian || v.LanguageTag == TagHindi
}

// preferredRules rank the default voice of a catalogue.
var preferredRules = []rule{
	{"quality-indian", func(v tts.Voice) bool { return isQuality(v) && isIndian(v) }},
	{"indian", isIndian},
	{"first", func(tts.Voice) bool { return true }},
}

// SelectPreferred picks the catalogue's default voice. It returns false for
// an empty catalogue.
func SelectPreferred(catalog []tts.Voice) (tts.Voice, bool) {
	v, _, ok := firstMatch(catalog, preferredRules)
	return v, ok
}

func matchRules(tag string) []rule {
	primary := PrimarySubtag(tag)
	return []rule{
		{"quality-exact", func(v tts.Voice) bool { return v.LanguageTag == tag && isQuality(v) }},
		{"exact", func(v tts.Voice) bool { return v.LanguageTag == tag }},
		{"primary", func(v tts.Voice) bool { return PrimarySubtag(v.LanguageTag) == primary }},
	}
}

// MatchVoice resolves the voice to speak tag with. The preferred voice is
// kept when its primary subtag matches; otherwise the catalogue is searched.
// It returns nil when the engine default should be used.
func MatchVoice(catalog []tts.Voice, preferred *tts.Voice, tag string) *tts.Voice {
	v, _ := matchVoice(catalog, preferred, tag)
	return v
}

func matchVoice(catalog []tts.Voice, preferred *tts.Voice, tag string) (*tts.Voice, string) {
	if preferred != nil && PrimarySubtag(preferred.LanguageTag) == PrimarySubtag(tag) {
		v := *preferred
		return &v, "preferred"
	}

	v, reason, ok := firstMatch(catalog, matchRules(tag))
	if !ok {
		return nil, "default"
	}
	return &v, reason
}
