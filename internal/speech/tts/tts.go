// Package tts wraps the platform speech engines (espeak, macOS say, Google
// Cloud TTS) behind one Engine interface.
package tts

import (
	"errors"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// ErrCapabilityUnavailable means no usable speech engine exists on this
// platform.
var ErrCapabilityUnavailable = errors.New("speech capability unavailable")

// Voice is one synthetic voice exposed by an engine.
type Voice struct {
	// Name is unique within an engine's catalogue.
	Name string `json:"name"`
	// LanguageTag is BCP-47, e.g. en-IN or hi-IN.
	LanguageTag string `json:"language_tag"`
	// ID is what the engine needs to select the voice; it defaults to Name.
	ID      string `json:"id,omitempty"`
	Gender  string `json:"gender,omitempty"`
	Natural bool   `json:"natural"`
}

func (v Voice) engineID() string {
	if v.ID != "" {
		return v.ID
	}
	return v.Name
}

// Utterance is one request to synthesize and play text.
type Utterance struct {
	ID          string
	Text        string
	LanguageTag string
	Rate        float64
	Pitch       float64
	// Voice is nil when the engine default for LanguageTag should be used.
	Voice *Voice
	// OnEnd, if set, is called once when playback finishes or is cancelled.
	OnEnd func()
}

func (u Utterance) end() {
	if u.OnEnd != nil {
		u.OnEnd()
	}
}

// Engine is the platform speech capability.
type Engine interface {
	// Voices returns the current catalogue. It may be empty until the
	// engine has finished loading; OnVoicesChanged fires when it changes.
	Voices() ([]Voice, error)
	// Speak starts playback and returns without waiting for it to end.
	Speak(u Utterance) error
	// Cancel stops the current utterance, if any, and returns once it is
	// no longer audible.
	Cancel() error
	IsSpeaking() bool
	OnVoicesChanged(fn func()) (unsubscribe func())
}

// NormalizeTag canonicalises platform language tags (en_IN, en-in) into
// BCP-47 form (en-IN). Unparseable tags are returned with '_' replaced.
func NormalizeTag(raw string) string {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), "_", "-")
	if raw == "" {
		return ""
	}

	tag, err := language.Parse(raw)
	if err != nil {
		return raw
	}
	return tag.String()
}

// voiceListeners is the voices-changed subscription list engines embed.
type voiceListeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]func()
}

func (l *voiceListeners) add(fn func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fns == nil {
		l.fns = make(map[int]func())
	}
	id := l.next
	l.next++
	l.fns[id] = fn

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

func (l *voiceListeners) fire() {
	l.mu.Lock()
	fns := make([]func(), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
