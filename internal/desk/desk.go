// Package desk is the studentdesk application shell. It wires the
// preference store, the speech engine and the voice service together and
// exposes them as cobra commands.
package desk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"studentdesk/internal/config"
	"studentdesk/internal/prefs"
	"studentdesk/internal/speech/tts"
	"studentdesk/internal/speech/voice"
	"studentdesk/internal/storage"
)

// ErrVoiceDisabled is returned when speech is requested while the student
// has turned the voice guide off.
var ErrVoiceDisabled = errors.New("voice guide is turned off")

// Preference keys.
const (
	KeyVoiceEnabled  = "voice_enabled"
	KeyVoiceLanguage = "voice_language"
	KeyVoiceName     = "voice_name"
	KeySpeechRate    = "speech_rate"
	KeyTourSeen      = "tour_seen"
)

// App holds everything a command needs.
type App struct {
	cfg config.Config
	log logrus.FieldLogger
	out io.Writer

	store  *storage.Store
	engine tts.Engine
	voice  *voice.Service

	// voiceErr is why voice features are off, nil when they work.
	voiceErr  error
	warnVoice sync.Once

	VoiceEnabled  *prefs.Cell[bool]
	VoiceLanguage *prefs.Cell[string]
	VoiceName     *prefs.Cell[string]
	SpeechRate    *prefs.Cell[float64]
	TourSeen      *prefs.Cell[bool]
}

// Option configures an App.
type Option func(*options)

type options struct {
	log     logrus.FieldLogger
	out     io.Writer
	engine  tts.Engine
	backend storage.Backend
	cfg     *config.Config
}

// WithLogger sets the logger handed to every component.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithOutput sets where user-facing output goes.
func WithOutput(out io.Writer) Option {
	return func(o *options) {
		o.out = out
	}
}

// WithEngine uses engine instead of the one named in the configuration.
func WithEngine(engine tts.Engine) Option {
	return func(o *options) {
		o.engine = engine
	}
}

// WithBackend uses backend instead of the one named in the configuration.
func WithBackend(backend storage.Backend) Option {
	return func(o *options) {
		o.backend = backend
	}
}

// WithConfig skips configuration loading in NewRootCommand.
func WithConfig(cfg config.Config) Option {
	return func(o *options) {
		o.cfg = &cfg
	}
}

func buildOptions(opts []Option) options {
	o := options{
		log: logrus.StandardLogger(),
		out: os.Stdout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New builds the application. A storage backend that cannot be opened is
// replaced by in-memory storage, and a missing speech engine only disables
// voice features; neither stops the app.
func New(cfg config.Config, opts ...Option) (*App, error) {
	o := buildOptions(opts)

	a := &App{
		cfg: cfg,
		log: o.log,
		out: o.out,
	}

	backend := o.backend
	if backend == nil {
		var err error
		backend, err = storage.NewBackend(cfg.Storage)
		if err != nil {
			a.log.WithError(err).WithField("backend", cfg.Storage.Type).
				Warn("Preferences will not be saved, falling back to memory")
			backend = storage.NewMemoryBackend()
		}
	}
	a.store = storage.New(backend, storage.WithLogger(a.log))

	engine := o.engine
	if engine == nil {
		var err error
		engine, err = tts.NewEngine(tts.Config{
			Type:        cfg.TTS.Type,
			CachePath:   cfg.TTS.CachePath,
			CacheMaxAge: cfg.TTS.CacheMaxAge,
			Out:         a.out,
		})
		if err != nil {
			a.voiceErr = err
		}
	}

	if a.voiceErr == nil {
		svc, err := voice.NewService(engine, voice.WithLogger(a.log))
		if err != nil {
			a.voiceErr = err
		} else {
			a.engine = engine
			a.voice = svc
		}
	}
	if a.voiceErr != nil {
		a.log.WithError(a.voiceErr).Debug("Voice features disabled")
	}

	cellLog := prefs.WithLogger(a.log)
	a.VoiceEnabled = prefs.Bind(a.store, KeyVoiceEnabled, true, cellLog)
	a.VoiceLanguage = prefs.Bind(a.store, KeyVoiceLanguage, cfg.TTS.Language, cellLog)
	a.VoiceName = prefs.Bind(a.store, KeyVoiceName, cfg.TTS.Voice, cellLog)
	a.SpeechRate = prefs.Bind(a.store, KeySpeechRate, cfg.TTS.Rate, cellLog)
	a.TourSeen = prefs.Bind(a.store, KeyTourSeen, false, cellLog)

	return a, nil
}

// Ready waits until every preference has finished its initial load.
func (a *App) Ready(ctx context.Context) error {
	for _, loaded := range []<-chan struct{}{
		a.VoiceEnabled.Loaded(),
		a.VoiceLanguage.Loaded(),
		a.VoiceName.Loaded(),
		a.SpeechRate.Loaded(),
		a.TourSeen.Loaded(),
	} {
		select {
		case <-loaded:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Voice returns the voice service, or the reason voice features are off.
func (a *App) Voice() (*voice.Service, error) {
	if a.voice == nil {
		a.warnVoice.Do(func() {
			a.log.WithError(a.voiceErr).Warn("Voice features are unavailable on this system")
		})
		return nil, a.voiceErr
	}
	return a.voice, nil
}

// SpeakParams override the stored preferences for one utterance. Zero
// values mean "use the preference".
type SpeakParams struct {
	Language voice.LanguageMode
	Rate     float64
	Pitch    float64
	Voice    string
}

// Speak starts speaking text with the student's preferences and returns the
// utterance ID. done, if non-nil, is called when playback ends.
func (a *App) Speak(text string, p SpeakParams, done func()) (string, error) {
	if !a.VoiceEnabled.Value() {
		return "", ErrVoiceDisabled
	}

	svc, err := a.Voice()
	if err != nil {
		return "", err
	}

	name := p.Voice
	if name == "" {
		name = a.VoiceName.Value()
	}
	if name != "" && !svc.SetVoice(name) {
		a.log.WithField("voice", name).Warn("Voice not found, using the default")
	}

	mode := p.Language
	if mode == "" {
		mode = voice.LanguageMode(a.VoiceLanguage.Value())
	}
	rate := p.Rate
	if rate == 0 {
		rate = a.SpeechRate.Value()
	}
	pitch := p.Pitch
	if pitch == 0 {
		pitch = a.cfg.TTS.Pitch
	}

	opts := []voice.SpeakOption{
		voice.WithLanguage(mode),
		voice.WithRate(rate),
		voice.WithPitch(pitch),
	}
	if done != nil {
		opts = append(opts, voice.WithOnEnd(done))
	}
	return svc.Speak(text, opts...)
}

// SpeakAndWait speaks text and blocks until playback ends. Cancelling ctx
// stops playback.
func (a *App) SpeakAndWait(ctx context.Context, text string, p SpeakParams) error {
	ended := make(chan struct{})
	var once sync.Once

	id, err := a.Speak(text, p, func() { once.Do(func() { close(ended) }) })
	if err != nil {
		return err
	}
	if id == "" {
		return nil
	}

	select {
	case <-ended:
		return nil
	case <-ctx.Done():
		_ = a.voice.Stop()
		return ctx.Err()
	}
}

// Stop silences any current utterance.
func (a *App) Stop() error {
	if a.voice == nil {
		return nil
	}
	return a.voice.Stop()
}

// Close stops playback, flushes pending preference writes and releases the
// engine and storage.
func (a *App) Close() error {
	var errs []error

	if a.voice != nil {
		if err := a.voice.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if closer, ok := a.engine.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close speech engine: %w", err))
		}
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
	}

	return errors.Join(errs...)
}
