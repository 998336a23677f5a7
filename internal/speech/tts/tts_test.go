package tts_test

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentdesk/internal/speech/tts"
)

func TestNormalizeTag(t *testing.T) {
	cases := map[string]string{
		"en_IN":    "en-IN",
		"en-in":    "en-IN",
		"hi_IN":    "hi-IN",
		"hi":       "hi",
		" en-gb ":  "en-GB",
		"":         "",
		"not_a_$$": "not-a-$$",
	}

	for in, want := range cases {
		assert.Equal(t, want, tts.NormalizeTag(in), in)
	}
}

func TestMockEngineRecordsAndCancels(t *testing.T) {
	engine := tts.NewMockEngine(tts.DefaultMockVoices()...)

	var ended []string
	require.NoError(t, engine.Speak(tts.Utterance{ID: "1", Text: "one", OnEnd: func() { ended = append(ended, "1") }}))
	assert.True(t, engine.IsSpeaking())

	require.NoError(t, engine.Cancel())
	assert.False(t, engine.IsSpeaking())
	assert.Equal(t, []string{"1"}, ended)

	require.NoError(t, engine.Cancel(), "cancel with nothing playing")
	assert.Equal(t, []string{"1"}, ended)
	assert.Equal(t, 2, engine.Cancels())

	require.NoError(t, engine.Speak(tts.Utterance{ID: "2", Text: "two", OnEnd: func() { ended = append(ended, "2") }}))
	engine.Finish()
	assert.Equal(t, []string{"1", "2"}, ended)
	assert.Len(t, engine.Spoken(), 2)
	assert.Equal(t, 1, engine.MaxActive())
}

func TestMockEngineOverlapIsVisible(t *testing.T) {
	engine := tts.NewMockEngine()

	require.NoError(t, engine.Speak(tts.Utterance{Text: "a"}))
	require.NoError(t, engine.Speak(tts.Utterance{Text: "b"}))

	assert.Equal(t, 2, engine.MaxActive())
}

func TestMockEngineVoicesChanged(t *testing.T) {
	engine := tts.NewMockEngine()
	voices, err := engine.Voices()
	require.NoError(t, err)
	assert.Empty(t, voices)

	calls := 0
	unsubscribe := engine.OnVoicesChanged(func() { calls++ })

	engine.SetVoices(tts.Voice{Name: "Google हिन्दी", LanguageTag: "hi-IN"})
	assert.Equal(t, 1, calls)

	voices, err = engine.Voices()
	require.NoError(t, err)
	assert.Len(t, voices, 1)

	unsubscribe()
	engine.SetVoices()
	assert.Equal(t, 1, calls)
}

func TestMockEngineOutput(t *testing.T) {
	var out bytes.Buffer
	engine, err := tts.NewEngine(tts.Config{Type: "mock", Out: &out})
	require.NoError(t, err)

	voice := tts.Voice{Name: "Google हिन्दी", LanguageTag: "hi-IN"}
	require.NoError(t, engine.Speak(tts.Utterance{Text: "नमस्ते दोस्तों", LanguageTag: "hi-IN", Voice: &voice}))

	assert.Contains(t, out.String(), "hi-IN")
	assert.Contains(t, out.String(), "Google हिन्दी")
	assert.Contains(t, out.String(), "2 words")
}

func TestNewEngine(t *testing.T) {
	_, err := tts.NewEngine(tts.Config{Type: "festival"})
	assert.Error(t, err)

	if runtime.GOOS != "darwin" {
		_, err = tts.NewEngine(tts.Config{Type: "say"})
		assert.ErrorIs(t, err, tts.ErrCapabilityUnavailable)
	}
	if runtime.GOOS != "windows" {
		_, err = tts.NewEngine(tts.Config{Type: "sapi"})
		assert.ErrorIs(t, err, tts.ErrCapabilityUnavailable)
	}

	engine, err := tts.NewEngine(tts.Config{Type: "mock"})
	require.NoError(t, err)
	voices, err := engine.Voices()
	require.NoError(t, err)
	assert.Equal(t, tts.DefaultMockVoices(), voices)
}

func TestGetAvailableEnginesIncludesMock(t *testing.T) {
	assert.Contains(t, tts.GetAvailableEngines(), tts.EngineTypeMock)
}

func TestConfiguredMockEndsImmediately(t *testing.T) {
	engine, err := tts.NewEngine(tts.Config{Type: "mock"})
	require.NoError(t, err)

	ended := make(chan struct{})
	require.NoError(t, engine.Speak(tts.Utterance{Text: "done", OnEnd: func() { close(ended) }}))

	select {
	case <-ended:
	default:
		t.Fatal("utterance did not end")
	}
	assert.False(t, engine.IsSpeaking())
}
