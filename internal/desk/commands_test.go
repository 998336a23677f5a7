package desk_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentdesk/internal/config"
	"studentdesk/internal/desk"
	"studentdesk/internal/speech/tts"
	"studentdesk/internal/storage"
)

type harness struct {
	cfg     config.Config
	engine  *tts.MockEngine
	backend *storage.MemoryBackend
}

func newHarness() *harness {
	engine := tts.NewMockEngine(tts.DefaultMockVoices()...)
	engine.Instant = true
	return &harness{cfg: config.Default(), engine: engine, backend: storage.NewMemoryBackend()}
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	log, _ := logtest.NewNullLogger()
	root := desk.NewRootCommand(
		desk.WithConfig(h.cfg),
		desk.WithEngine(h.engine),
		desk.WithBackend(h.backend),
		desk.WithLogger(log),
	)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func TestWelcomeSuggestsTour(t *testing.T) {
	h := newHarness()

	out, err := h.run(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome to StudentDesk")
	assert.Contains(t, out, "studentdesk tour")
}

func TestVoicesCommandMarksPreferred(t *testing.T) {
	h := newHarness()

	out, err := h.run(t, "voices")
	require.NoError(t, err)

	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "Google हिन्दी") {
			assert.Contains(t, line, "⭐")
		}
		if strings.Contains(line, "Google US English") {
			assert.NotContains(t, line, "⭐")
		}
	}
	assert.Contains(t, out, "Found 4 voices")
}

func TestSpeakCommand(t *testing.T) {
	h := newHarness()

	_, err := h.run(t, "speak", "नमस्ते", "दोस्तों")
	require.NoError(t, err)
	_, err = h.run(t, "speak", "--lang", "en", "--rate", "1.2", "Hello")
	require.NoError(t, err)

	spoken := h.engine.Spoken()
	require.Len(t, spoken, 2)
	assert.Equal(t, "नमस्ते दोस्तों", spoken[0].Text)
	assert.Equal(t, "hi-IN", spoken[0].LanguageTag)
	assert.Equal(t, "en-US", spoken[1].LanguageTag)
	assert.InEpsilon(t, 1.2, spoken[1].Rate, 0.001)

	_, err = h.run(t, "speak", "--lang", "fr", "Bonjour")
	assert.Error(t, err)
	assert.Len(t, h.engine.Spoken(), 2)
}

func TestSpeakCommandWithVoiceOff(t *testing.T) {
	h := newHarness()

	_, err := h.run(t, "prefs", "set", "voice_enabled", "false")
	require.NoError(t, err)

	out, err := h.run(t, "speak", "Hello")
	require.NoError(t, err)
	assert.Contains(t, out, "Voice guide is off")
	assert.Empty(t, h.engine.Spoken())
}

func TestPrefsCommands(t *testing.T) {
	h := newHarness()

	_, err := h.run(t, "prefs", "set", "voice_language", "hi")
	require.NoError(t, err)

	out, err := h.run(t, "prefs", "get", "voice_language")
	require.NoError(t, err)
	assert.Equal(t, "hi\n", out)

	out, err = h.run(t, "prefs")
	require.NoError(t, err)
	assert.Contains(t, out, "voice_language")
	assert.Contains(t, out, "speech_rate")

	_, err = h.run(t, "prefs", "set", "voice_language", "fr")
	assert.Error(t, err)
}

func TestTourCommand(t *testing.T) {
	h := newHarness()

	out, err := h.run(t, "tour", "--lang", "hi")
	require.NoError(t, err)
	assert.Contains(t, out, "Tour finished")

	spoken := h.engine.Spoken()
	require.Len(t, spoken, len(desk.Tour))
	for i, u := range spoken {
		assert.Equal(t, desk.Tour[i].Hindi, u.Text)
		assert.Equal(t, "hi-IN", u.LanguageTag)
	}

	out, err = h.run(t, "prefs", "get", "tour_seen")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, err = h.run(t)
	require.NoError(t, err)
	assert.NotContains(t, out, "New here?")
}

func TestTourWithoutVoiceStillShowsText(t *testing.T) {
	h := newHarness()

	_, err := h.run(t, "prefs", "set", "voice_enabled", "false")
	require.NoError(t, err)

	out, err := h.run(t, "tour")
	require.NoError(t, err)
	for _, step := range desk.Tour {
		assert.Contains(t, out, step.Section)
		assert.Contains(t, out, step.English)
	}
	assert.Empty(t, h.engine.Spoken())
}

func TestEnginesCommand(t *testing.T) {
	h := newHarness()

	out, err := h.run(t, "engines")
	require.NoError(t, err)
	assert.Contains(t, out, "mock")
}

func TestConfigInitCommand(t *testing.T) {
	h := newHarness()
	path := filepath.Join(t.TempDir(), "studentdesk.toml")

	out, err := h.run(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var cfg config.Config
	require.NoError(t, toml.Unmarshal(data, &cfg))
	assert.Equal(t, config.Default(), cfg)

	_, err = h.run(t, "config", "init", path)
	assert.Error(t, err)
}

func TestCacheCommands(t *testing.T) {
	h := newHarness()
	h.cfg.TTS.CachePath = filepath.Join(t.TempDir(), "audio")
	h.cfg.TTS.CacheMaxAge = time.Hour

	out, err := h.run(t, "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Cache does not exist")

	cache := tts.NewAudioCache(h.cfg.TTS.CachePath, ".mp3", time.Hour)
	fresh, err := cache.Store("fresh", []byte("abc"))
	require.NoError(t, err)
	stale, err := cache.Store("stale", []byte("defg"))
	require.NoError(t, err)
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	out, err = h.run(t, "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Files: 2")
	assert.Contains(t, out, "Size: 7 bytes")

	out, err = h.run(t, "cache", "prune")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 expired files")
	assert.FileExists(t, fresh)
	assert.NoFileExists(t, stale)

	_, err = h.run(t, "cache", "clear")
	require.NoError(t, err)
	assert.NoDirExists(t, h.cfg.TTS.CachePath)
}
