package tts

import (
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// MockEngine plays nothing. It records utterances and lets callers swap the
// catalogue to simulate platforms that load voices late.
type MockEngine struct {
	// Out receives a line per utterance when non-nil.
	Out io.Writer
	// Instant ends every utterance as soon as it has been printed.
	Instant bool

	mutex     sync.Mutex
	voices    []Voice
	active    *Utterance
	spoken    []Utterance
	cancels   int
	maxActive int
	listeners voiceListeners
}

// DefaultMockVoices is a small catalogue resembling what a browser on an
// Indian-locale machine reports.
func DefaultMockVoices() []Voice {
	return []Voice{
		{Name: "Google US English", LanguageTag: "en-US", Natural: true},
		{Name: "Google हिन्दी", LanguageTag: "hi-IN", Natural: true},
		{Name: "Microsoft Heera - English (India)", LanguageTag: "en-IN", Gender: "F"},
		{Name: "Microsoft Kalpana - Hindi (India)", LanguageTag: "hi-IN", Gender: "F"},
	}
}

func NewMockEngine(voices ...Voice) *MockEngine {
	return &MockEngine{voices: append([]Voice(nil), voices...)}
}

func (m *MockEngine) Voices() ([]Voice, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]Voice(nil), m.voices...), nil
}

// SetVoices replaces the catalogue and notifies subscribers.
func (m *MockEngine) SetVoices(voices ...Voice) {
	m.mutex.Lock()
	m.voices = append([]Voice(nil), voices...)
	m.mutex.Unlock()

	m.listeners.fire()
}

func (m *MockEngine) OnVoicesChanged(fn func()) func() {
	return m.listeners.add(fn)
}

func (m *MockEngine) Speak(u Utterance) error {
	m.mutex.Lock()
	prev := m.active
	m.active = &u
	m.spoken = append(m.spoken, u)
	active := 1
	if prev != nil {
		active = 2
	}
	if active > m.maxActive {
		m.maxActive = active
	}
	m.mutex.Unlock()

	if m.Out != nil {
		voice := "default"
		if u.Voice != nil {
			voice = u.Voice.Name
		}
		words := len(strings.Fields(u.Text))
		color.New(color.FgYellow).Fprintf(m.Out, "🔊 [%s, %s, %d words] %s\n", u.LanguageTag, voice, words, u.Text)
	}

	if m.Instant {
		m.Finish()
	}
	return nil
}

// Finish ends the current utterance as if playback completed.
func (m *MockEngine) Finish() {
	m.mutex.Lock()
	u := m.active
	m.active = nil
	m.mutex.Unlock()

	if u != nil {
		u.end()
	}
}

func (m *MockEngine) Cancel() error {
	m.mutex.Lock()
	u := m.active
	m.active = nil
	m.cancels++
	m.mutex.Unlock()

	if u != nil {
		u.end()
	}
	return nil
}

func (m *MockEngine) IsSpeaking() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.active != nil
}

// Spoken returns every utterance passed to Speak, oldest first.
func (m *MockEngine) Spoken() []Utterance {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]Utterance(nil), m.spoken...)
}

// Cancels counts Cancel calls.
func (m *MockEngine) Cancels() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.cancels
}

// MaxActive is the largest number of utterances that were active at once.
func (m *MockEngine) MaxActive() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.maxActive
}
