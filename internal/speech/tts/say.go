package tts

import (
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"
)

// SayEngine drives the macOS built-in 'say' command.
type SayEngine struct {
	path string

	mutex     sync.Mutex
	proc      speechProcess
	voices    []Voice
	listeners voiceListeners
}

// "Alex                en_US    # Most people recognize me by my voice."
var sayVoiceLine = regexp.MustCompile(`^(.+?)\s+([a-z]{2,3}[_-][A-Za-z0-9]+)\s+#`)

// NewSayEngine creates a new macOS speech engine
func NewSayEngine() (*SayEngine, error) {
	path, err := exec.LookPath("say")
	if err != nil {
		return nil, fmt.Errorf("%w: say not found: %v", ErrCapabilityUnavailable, err)
	}
	return &SayEngine{path: path, proc: speechProcess{name: "say"}}, nil
}

func (s *SayEngine) Speak(u Utterance) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	args := []string{}

	// Set voice if specified
	if u.Voice != nil {
		args = append(args, "-v", u.Voice.engineID())
	}

	// Set rate (words per minute, default is ~175)
	args = append(args, "-r", fmt.Sprintf("%.0f", 175*clamp(u.Rate, 0.1, 3.0)))

	// Text comes from stdin
	cmd := exec.Command(s.path, args...)
	cmd.Stdin = strings.NewReader(u.Text)
	return s.proc.start(cmd, u)
}

func (s *SayEngine) Cancel() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.proc.stop()
	return nil
}

func (s *SayEngine) IsSpeaking() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.proc.running()
}

func (s *SayEngine) Voices() ([]Voice, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.voices != nil {
		return append([]Voice(nil), s.voices...), nil
	}

	output, err := exec.Command(s.path, "-v", "?").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list say voices: %w", err)
	}

	s.voices = parseSayVoices(string(output))
	return append([]Voice(nil), s.voices...), nil
}

func (s *SayEngine) OnVoicesChanged(fn func()) func() {
	return s.listeners.add(fn)
}

func parseSayVoices(output string) []Voice {
	voices := make([]Voice, 0)

	for _, line := range strings.Split(output, "\n") {
		m := sayVoiceLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		name := strings.TrimSpace(m[1])
		voices = append(voices, Voice{
			Name:        name,
			LanguageTag: NormalizeTag(m[2]),
			Natural:     strings.Contains(name, "(Enhanced)") || strings.Contains(name, "(Premium)"),
		})
	}

	return voices
}
