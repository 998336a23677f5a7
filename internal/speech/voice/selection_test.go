package voice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentdesk/internal/speech/tts"
	"studentdesk/internal/speech/voice"
)

var (
	googleUK     = tts.Voice{Name: "Google UK English Female", LanguageTag: "en-GB"}
	googleUS     = tts.Voice{Name: "Google US English", LanguageTag: "en-US"}
	googleHindi  = tts.Voice{Name: "Google हिन्दी", LanguageTag: "hi-IN"}
	heera        = tts.Voice{Name: "Microsoft Heera - English (India)", LanguageTag: "en-IN"}
	kalpana      = tts.Voice{Name: "Microsoft Kalpana - Hindi (India)", LanguageTag: "hi-IN"}
	microsoftUS  = tts.Voice{Name: "Microsoft David", LanguageTag: "en-US"}
	googleFrench = tts.Voice{Name: "Google français", LanguageTag: "fr-FR"}
)

func TestSelectPreferred(t *testing.T) {
	cases := []struct {
		name    string
		catalog []tts.Voice
		want    tts.Voice
	}{
		{"quality indian beats earlier entries", []tts.Voice{googleUK, googleHindi}, googleHindi},
		{"quality indian beats plain indian", []tts.Voice{heera, googleHindi}, googleHindi},
		{"indian without quality", []tts.Voice{googleUK, kalpana}, kalpana},
		{"first entry as last resort", []tts.Voice{microsoftUS, googleUK}, microsoftUS},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := voice.SelectPreferred(tc.catalog)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}

	_, ok := voice.SelectPreferred(nil)
	assert.False(t, ok)
}

func TestMatchVoice(t *testing.T) {
	catalog := []tts.Voice{microsoftUS, googleUK, kalpana, googleHindi, heera, googleUS}

	cases := []struct {
		name      string
		preferred *tts.Voice
		tag       string
		want      *tts.Voice
	}{
		{"preferred kept on same primary subtag", &heera, "en-US", &heera},
		{"preferred kept for exact tag", &googleHindi, "hi-IN", &googleHindi},
		{"quality exact match", &googleHindi, "en-US", &googleUS},
		{"exact match", nil, "en-IN", &heera},
		{"quality exact before earlier exact", nil, "hi-IN", &googleHindi},
		{"primary subtag fallback", nil, "en-AU", &microsoftUS},
		{"no match uses engine default", &googleHindi, "fr-FR", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, voice.MatchVoice(catalog, tc.preferred, tc.tag))
		})
	}
}

func TestMatchVoiceEmptyCatalog(t *testing.T) {
	assert.Nil(t, voice.MatchVoice(nil, nil, "en-IN"))
	assert.Equal(t, &googleFrench, voice.MatchVoice(nil, &googleFrench, "fr-CA"))
}
