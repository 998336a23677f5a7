package tts

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/sirupsen/logrus"
)

// googleVoicePrefix marks cloud voices in the catalogue so they rank as
// high quality.
const googleVoicePrefix = "Google "

// GoogleEngine synthesizes with Google Cloud Text-to-Speech and plays the
// MP3 through the local speaker. Synthesized audio is cached on disk.
type GoogleEngine struct {
	client *texttospeech.Client
	ctx    context.Context
	cache  *AudioCache

	mu        sync.Mutex
	voices    []Voice
	cancel    context.CancelFunc
	done      chan struct{}
	listeners voiceListeners

	speakerMu  sync.Mutex
	sampleRate beep.SampleRate
}

// NewGoogleEngine creates the client and starts loading the voice catalogue
// in the background; OnVoicesChanged fires when it arrives.
func NewGoogleEngine(cache *AudioCache) (*GoogleEngine, error) {
	ctx := context.Background()
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create TTS client: %v", ErrCapabilityUnavailable, err)
	}

	g := &GoogleEngine{
		client: client,
		ctx:    ctx,
		cache:  cache,
	}
	go g.loadVoices()

	return g, nil
}

func (g *GoogleEngine) loadVoices() {
	ctx, cancel := context.WithTimeout(g.ctx, 30*time.Second)
	defer cancel()

	resp, err := g.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{})
	if err != nil {
		logrus.WithError(err).Warn("Failed to list Google voices")
		return
	}

	voices := make([]Voice, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		if len(v.LanguageCodes) == 0 {
			continue
		}
		voices = append(voices, Voice{
			Name:        googleVoicePrefix + v.Name,
			LanguageTag: NormalizeTag(v.LanguageCodes[0]),
			ID:          v.Name,
			Gender:      v.SsmlGender.String(),
			Natural:     isNaturalVoice(v.Name),
		})
	}

	g.mu.Lock()
	g.voices = voices
	g.mu.Unlock()

	logrus.WithField("voices", len(voices)).Debug("Loaded Google voice catalogue")
	g.listeners.fire()
}

func isNaturalVoice(name string) bool {
	for _, marker := range []string{"Wavenet", "Neural2", "Chirp", "Studio"} {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

func (g *GoogleEngine) Voices() ([]Voice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Voice(nil), g.voices...), nil
}

func (g *GoogleEngine) OnVoicesChanged(fn func()) func() {
	return g.listeners.add(fn)
}

// Speak synthesizes (or reuses cached audio) and plays in the background.
func (g *GoogleEngine) Speak(u Utterance) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopLocked()

	ctx, cancel := context.WithCancel(g.ctx)
	done := make(chan struct{})
	g.cancel = cancel
	g.done = done

	go func() {
		defer u.end()
		defer close(done)

		if err := g.play(ctx, u); err != nil && ctx.Err() == nil {
			logrus.WithError(err).WithField("utterance", u.ID).Warn("Google TTS playback failed")
		}
	}()

	return nil
}

func (g *GoogleEngine) play(ctx context.Context, u Utterance) error {
	path, err := g.audioFile(ctx, u)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open cached MP3 %s: %w", path, err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to decode MP3 %s: %w", path, err)
	}
	defer streamer.Close()

	if err := g.initSpeaker(format.SampleRate); err != nil {
		return err
	}

	finished := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(finished)
	})))

	select {
	case <-finished:
	case <-ctx.Done():
		speaker.Clear()
	}
	return nil
}

func (g *GoogleEngine) initSpeaker(rate beep.SampleRate) error {
	g.speakerMu.Lock()
	defer g.speakerMu.Unlock()

	if g.sampleRate == rate {
		return nil
	}
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		return fmt.Errorf("failed to init speaker: %w", err)
	}
	g.sampleRate = rate
	return nil
}

// audioFile returns the cached MP3 for u, synthesizing it first if needed.
func (g *GoogleEngine) audioFile(ctx context.Context, u Utterance) (string, error) {
	voiceName := ""
	if u.Voice != nil {
		voiceName = u.Voice.engineID()
	}

	key := fmt.Sprintf("%s|%s|%s|%.2f|%.2f", u.Text, u.LanguageTag, voiceName, u.Rate, u.Pitch)
	if path, ok := g.cache.Lookup(key); ok {
		logrus.WithField("file", path).Debug("Using cached audio")
		return path, nil
	}

	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: u.Text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: u.LanguageTag,
			Name:         voiceName,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	}

	// Chirp voices don't support speakingRate/pitch
	if !strings.Contains(strings.ToLower(voiceName), "chirp") {
		req.AudioConfig.SpeakingRate = clamp(u.Rate, 0.25, 4.0)
		req.AudioConfig.Pitch = clamp((u.Pitch-1)*20, -20, 20) // semitones
	}

	resp, err := g.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to synthesize speech: %w", err)
	}

	return g.cache.Store(key, resp.AudioContent)
}

func (g *GoogleEngine) Cancel() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopLocked()
	return nil
}

func (g *GoogleEngine) stopLocked() {
	if g.done == nil {
		return
	}

	g.cancel()
	<-g.done
	g.cancel = nil
	g.done = nil
}

func (g *GoogleEngine) IsSpeaking() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.done == nil {
		return false
	}
	select {
	case <-g.done:
		return false
	default:
		return true
	}
}

// Close stops playback and closes the client.
func (g *GoogleEngine) Close() error {
	_ = g.Cancel()
	return g.client.Close()
}
