// Package voice picks a synthetic voice and language for arbitrary text and
// drives playback through a tts.Engine.
package voice

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"studentdesk/internal/speech/tts"
)

// ErrCapabilityUnavailable is returned by NewService when there is no
// speech engine to drive.
var ErrCapabilityUnavailable = tts.ErrCapabilityUnavailable

// Service owns the voice catalogue and the preferred voice. At most one
// utterance is active at a time; Speak preempts rather than queues.
type Service struct {
	engine tts.Engine
	log    logrus.FieldLogger

	// speakMu serialises cancel-then-speak so two utterances never overlap.
	speakMu sync.Mutex

	mu          sync.RWMutex
	catalog     []tts.Voice
	preferred   *tts.Voice
	unsubscribe func()
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// NewService loads the engine's catalogue and subscribes to its changes.
func NewService(engine tts.Engine, opts ...Option) (*Service, error) {
	if engine == nil {
		return nil, fmt.Errorf("%w: no speech engine", ErrCapabilityUnavailable)
	}

	s := &Service{
		engine: engine,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.refreshCatalog()
	s.unsubscribe = engine.OnVoicesChanged(s.refreshCatalog)

	return s, nil
}

// Refresh re-reads the catalogue from the engine.
func (s *Service) Refresh() {
	s.refreshCatalog()
}

// refreshCatalog replaces the catalogue wholesale and recomputes the
// preferred voice. On engine errors the previous catalogue is kept.
func (s *Service) refreshCatalog() {
	voices, err := s.engine.Voices()
	if err != nil {
		s.log.WithError(err).Warn("Failed to read voice catalogue")
		return
	}

	var preferred *tts.Voice
	if v, ok := SelectPreferred(voices); ok {
		preferred = &v
	}

	s.mu.Lock()
	s.catalog = voices
	s.preferred = preferred
	s.mu.Unlock()

	fields := logrus.Fields{"voices": len(voices)}
	if preferred != nil {
		fields["preferred"] = preferred.Name
	}
	s.log.WithFields(fields).Debug("Voice catalogue refreshed")
}

// Voices returns a copy of the current catalogue.
func (s *Service) Voices() []tts.Voice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]tts.Voice(nil), s.catalog...)
}

// Preferred returns the current preferred voice.
func (s *Service) Preferred() (tts.Voice, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.preferred == nil {
		return tts.Voice{}, false
	}
	return *s.preferred, true
}

// SetVoice makes the catalogue entry called name the preferred voice.
// Unknown names are ignored and reported as false.
func (s *Service) SetVoice(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range s.catalog {
		if v.Name == name {
			s.preferred = &v
			return true
		}
	}

	s.log.WithField("voice", name).Debug("Ignoring unknown voice")
	return false
}

type speakOptions struct {
	mode  LanguageMode
	rate  float64
	pitch float64
	onEnd func()
}

// SpeakOption adjusts one Speak call.
type SpeakOption func(*speakOptions)

// WithLanguage sets the language mode; the default is LanguageAuto.
func WithLanguage(mode LanguageMode) SpeakOption {
	return func(o *speakOptions) {
		o.mode = mode
	}
}

// WithRate sets the speaking rate; 1.0 is normal.
func WithRate(rate float64) SpeakOption {
	return func(o *speakOptions) {
		o.rate = rate
	}
}

// WithPitch sets the pitch; 1.0 is normal.
func WithPitch(pitch float64) SpeakOption {
	return func(o *speakOptions) {
		o.pitch = pitch
	}
}

// WithOnEnd registers a callback for when playback ends or is cancelled.
func WithOnEnd(fn func()) SpeakOption {
	return func(o *speakOptions) {
		o.onEnd = fn
	}
}

// Speak cancels any current utterance and starts speaking text. It returns
// the new utterance's ID, or "" when text is empty. Missing voices are not
// errors; the engine default is used.
func (s *Service) Speak(text string, opts ...SpeakOption) (string, error) {
	if text == "" {
		return "", nil
	}

	o := speakOptions{mode: LanguageAuto, rate: 1.0, pitch: 1.0}
	for _, opt := range opts {
		opt(&o)
	}

	tag := ResolveLanguage(text, o.mode)

	s.mu.RLock()
	voice, reason := matchVoice(s.catalog, s.preferred, tag)
	s.mu.RUnlock()

	u := tts.Utterance{
		ID:          uuid.NewString(),
		Text:        text,
		LanguageTag: tag,
		Rate:        o.rate,
		Pitch:       o.pitch,
		Voice:       voice,
		OnEnd:       o.onEnd,
	}

	entry := s.log.WithFields(logrus.Fields{
		"utterance": u.ID,
		"language":  tag,
		"match":     reason,
	})
	if voice != nil {
		entry = entry.WithField("voice", voice.Name)
	}

	s.speakMu.Lock()
	defer s.speakMu.Unlock()

	if err := s.engine.Cancel(); err != nil {
		entry.WithError(err).Warn("Failed to cancel previous utterance")
	}
	if err := s.engine.Speak(u); err != nil {
		return "", fmt.Errorf("failed to speak: %w", err)
	}

	entry.Debug("Speaking")
	return u.ID, nil
}

// Stop cancels the current utterance. It is safe to call when nothing is
// playing.
func (s *Service) Stop() error {
	s.speakMu.Lock()
	defer s.speakMu.Unlock()

	if !s.engine.IsSpeaking() {
		return nil
	}
	if err := s.engine.Cancel(); err != nil {
		return fmt.Errorf("failed to stop: %w", err)
	}
	return nil
}

// IsSpeaking reports whether an utterance is playing.
func (s *Service) IsSpeaking() bool {
	return s.engine.IsSpeaking()
}

// Close stops playback and detaches from the engine's notifications.
func (s *Service) Close() error {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	return s.Stop()
}
